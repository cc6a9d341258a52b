package room

import (
	"errors"
	"math/rand/v2"
)

// DefaultParagraphs is the built-in race text pool
var DefaultParagraphs = []string{
	"The quick brown fox jumps over the lazy dog. Pack my box with five dozen liquor jugs. How vexingly quick daft zebras jump!",
	"Amazingly few discotheques provide jukeboxes. Sphinx of black quartz, judge my vow. Watch Jeopardy!, Alex Trebek's fun TV quiz game.",
	"Programming is the art of telling another human being what one wants the computer to do. Good code is its own best documentation.",
	"The five boxing wizards jump quickly. How razorback jumping frogs can level six piqued gymnasts! Crazy Fredrick bought many very exquisite opal jewels.",
	"A fast-paced typing game improves your speed and accuracy. Practice makes perfect when learning to type efficiently and without errors.",
}

// ParagraphPool picks race texts uniformly at random
type ParagraphPool struct {
	paragraphs []string
	intn       func(n int) int
}

// NewParagraphPool copies paragraphs into a new pool
func NewParagraphPool(paragraphs []string) (*ParagraphPool, error) {
	if len(paragraphs) == 0 {
		return nil, errors.New("paragraph pool is empty")
	}
	return &ParagraphPool{
		paragraphs: append([]string(nil), paragraphs...),
		intn:       rand.IntN,
	}, nil
}

func (p *ParagraphPool) Pick() string {
	return p.paragraphs[p.intn(len(p.paragraphs))]
}

func (p *ParagraphPool) Len() int {
	return len(p.paragraphs)
}
