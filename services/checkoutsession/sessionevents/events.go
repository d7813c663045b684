package sessionevents

const (
	TopicName           = "checkoutsession"
	orderCreatedName    = TopicName + ".orderCreated"
	sessionCanceledName = TopicName + ".canceled"
)

type OrderCreated struct {
	OrderUID           string
	CheckoutSessionUID string
	AmountInCents      int64
	Currency           string
	PSPReference       string
}

func (e OrderCreated) GetEventTypeName() string {
	return orderCreatedName
}

func (e OrderCreated) GetAggregateName() string {
	return e.CheckoutSessionUID
}

type SessionCanceled struct {
	CheckoutSessionUID string
	ReasonCode         string
}

func (e SessionCanceled) GetEventTypeName() string {
	return sessionCanceledName
}

func (e SessionCanceled) GetAggregateName() string {
	return e.CheckoutSessionUID
}
