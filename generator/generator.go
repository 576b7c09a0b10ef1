package generator

import (
	"github.com/8090Lambert/tree-new-bee/rdb"
)

// Gen receives the events of one decoded source.
type Gen interface {
	Begin(source string, version int)
	AuxField(key, value []byte)
	Entry(e *rdb.Entry) error
	End() error
}

type tee []Gen

// Tee forwards every event to all gens in order. Entry and End stop at the first error.
func Tee(gens ...Gen) Gen {
	return tee(gens)
}

func (t tee) Begin(source string, version int) {
	for _, g := range t {
		g.Begin(source, version)
	}
}

func (t tee) AuxField(key, value []byte) {
	for _, g := range t {
		g.AuxField(key, value)
	}
}

func (t tee) Entry(e *rdb.Entry) error {
	for _, g := range t {
		if err := g.Entry(e); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) End() error {
	for _, g := range t {
		if err := g.End(); err != nil {
			return err
		}
	}
	return nil
}
