package enums

// OutboxEventType names the domain events queued through the outbox.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order.created"
	EventOrderLineItemUpdated  OutboxEventType = "order.line_item.updated"
	EventOrderLineItemRefunded OutboxEventType = "order.line_item.refunded"
	EventGroupBuyConfirmed     OutboxEventType = "listing.group_buy.confirmed"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateListing OutboxAggregateType = "listing"
)
