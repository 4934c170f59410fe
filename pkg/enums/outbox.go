package enums

// OutboxEventType enumerates the domain events written to the outbox.
type OutboxEventType string

const (
	EventPaymentConfirmed OutboxEventType = "payment.confirmed"
	EventPaymentFailed    OutboxEventType = "payment.failed"
	EventOrderCancelled   OutboxEventType = "order.cancelled"
	EventOrderOverdue     OutboxEventType = "order.overdue"
	EventRefundIssued     OutboxEventType = "refund.issued"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateBooking     OutboxAggregateType = "booking"
	AggregateRentalOrder OutboxAggregateType = "rental_order"
	AggregatePayment     OutboxAggregateType = "payment"
)
