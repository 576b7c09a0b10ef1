package protocol

import "context"

const (
	Aux       DataType = "Aux" // 辅助数据
	SelectDB  DataType = "SelectDB"
	Key       DataType = "Key"
	String    DataType = "String"
	Hash      DataType = "Hash"
	Set       DataType = "Set"
	SortedSet DataType = "SortedSet"
	List      DataType = "List"
	Stream    DataType = "Stream"
)

type DataType string

// Values lists the data types an entry can hold, in report order.
var Values = []DataType{String, Hash, List, SortedSet, Set, Stream}

// Parser decodes one source until it ends, fails or ctx is cancelled.
type Parser interface {
	Parse(ctx context.Context) error
}
