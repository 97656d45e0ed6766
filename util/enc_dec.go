package util

import (
	"encoding/json"
	"fmt"
)

// EncoderDecoder turns stored values into bytes and back.
type EncoderDecoder[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (*T, error)
	DecodeString(data string) (*T, error)
	DecodeAll(values []string) ([]*T, error)
}

type JsonEncDec[T any] struct{}

var _ EncoderDecoder[any] = new(JsonEncDec[any])

func NewJsonEncoderDecoder[T any]() *JsonEncDec[T] {
	return &JsonEncDec[T]{}
}

func (encdec *JsonEncDec[T]) Encode(value T) ([]byte, error) {
	res, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", value, err)
	}
	return res, nil
}

func (encdec *JsonEncDec[T]) Decode(data []byte) (*T, error) {
	res := new(T)
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("decode %T: %w", res, err)
	}
	return res, nil
}

func (encdec *JsonEncDec[T]) DecodeString(data string) (*T, error) {
	return encdec.Decode([]byte(data))
}

// DecodeAll decodes values in order and stops at the first failure.
func (encdec *JsonEncDec[T]) DecodeAll(values []string) ([]*T, error) {
	out := make([]*T, 0, len(values))
	for _, v := range values {
		item, err := encdec.DecodeString(v)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
