// internal/service/order/infrastructure/document/keys.go
package document

import "strconv"

const (
	orderSeqKey      = "orders:seq"
	orderIndexKey    = "orders:index"
	itemSeqKey       = "order_items:seq"
	itemIndexKey     = "order_items:index"
	orderKeyPrefix   = "order:"
	itemKeyPrefix    = "order_item:"
	statusKeyPrefix  = "orders:status:"
	orderItemsSuffix = ":items"
)

// Sequence 描述一类记录的ID来源：计数器键与按ID打分的索引键
type Sequence struct {
	Counter string
	Index   string
}

var (
	OrderSequence = Sequence{Counter: orderSeqKey, Index: orderIndexKey}
	ItemSequence  = Sequence{Counter: itemSeqKey, Index: itemIndexKey}
)

func orderKey(id int64) string {
	return orderKeyPrefix + strconv.FormatInt(id, 10)
}

func itemKey(id int64) string {
	return itemKeyPrefix + strconv.FormatInt(id, 10)
}

// orderItemsKey 是订单下订单项ID的有序集合，分数为订单项ID
func orderItemsKey(orderID int64) string {
	return orderKey(orderID) + orderItemsSuffix
}

func statusKey(status string) string {
	return statusKeyPrefix + status
}
