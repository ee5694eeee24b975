package backlog

import "github.com/mrz1836/aegir/internal/sweep"

// Item is an entry on the capture backlog: either a Shot or EndOfSequence.
type Item interface {
	isItem()
}

// Shot asks the capture stage to take one picture.
type Shot struct {
	// Index is the shot's position in the capture sequence.
	Index   int
	Setting sweep.Setting
}

// EndOfSequence tells the capture stage that no more shots follow.
type EndOfSequence struct {
	Reason string
}

func (Shot) isItem()          {}
func (EndOfSequence) isItem() {}
