package mocks

// record of arguments passed to a mocked method, in call order.
type CallLog[T any] []T

func (l CallLog[T]) Times() uint {
	return uint(len(l))
}
