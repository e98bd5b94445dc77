package history

import "time"

type Direction string

const (
	DirectionEncode Direction = "encode"
	DirectionDecode Direction = "decode"
)

func (d Direction) Valid() bool {
	return d == DirectionEncode || d == DirectionDecode
}

type Entry struct {
	ID        string    `json:"id"`
	Direction Direction `json:"direction"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"created_at"`
}

type Filter struct {
	Direction Direction
	// Query matches entries whose input or output contains it.
	Query string
	Limit int
}
