package model

// Block is an immutable, independently stored byte range. Names are opaque
// and content independent; identical data stored twice gets two names.
type Block struct {
	Name string
	Data []byte
}

func NewBlock(name string, data []byte) Block {
	return Block{
		Name: name,
		Data: data,
	}
}
