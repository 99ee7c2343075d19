package enums

// NotificationKind labels stored notifications produced from order events.
type NotificationKind string

const (
	NotificationKindOrderPlaced    NotificationKind = "order_placed"
	NotificationKindOrderReceived  NotificationKind = "order_received"
	NotificationKindLineItemStatus NotificationKind = "line_item_status"
	NotificationKindRefundIssued   NotificationKind = "refund_issued"
	NotificationKindGroupBuyLocked NotificationKind = "group_buy_locked"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindOrderPlaced,
	NotificationKindOrderReceived,
	NotificationKindLineItemStatus,
	NotificationKindRefundIssued,
	NotificationKindGroupBuyLocked,
}

// IsValid reports whether the value is a known NotificationKind.
func (k NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}
