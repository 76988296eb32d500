package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxTextLength is the maximum number of characters in an item's text.
const MaxTextLength = 100

// Item is a grocery list entry owned by the item store once persisted.
type Item struct {
	ID        string    `json:"id"`        // UUID v7, assigned by the store on creation.
	Text      string    `json:"text"`      // Trimmed item name, 1..MaxTextLength characters.
	Completed bool      `json:"completed"` // Whether the item has been picked up.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ItemUpdate carries the fields of a partial update. Nil fields keep their
// stored value.
type ItemUpdate struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// NormalizeText trims surrounding whitespace, converts the text to NFC, and
// validates the result. Returns ErrTextRequired for empty text and
// ErrTextTooLong when the text exceeds MaxTextLength characters.
func NormalizeText(text string) (string, error) {
	trimmed := norm.NFC.String(strings.TrimSpace(text))
	if trimmed == "" {
		return "", ErrTextRequired
	}
	if utf8.RuneCountInString(trimmed) > MaxTextLength {
		return "", ErrTextTooLong
	}
	return trimmed, nil
}

// Toggle sets Completed to its opposite and refreshes UpdatedAt.
func (i *Item) Toggle() {
	i.Completed = !i.Completed
	i.UpdatedAt = time.Now().UTC()
}

// Apply merges u into the item. Text is validated; on error the item is left
// untouched.
func (i *Item) Apply(u ItemUpdate) error {
	text := i.Text
	if u.Text != nil {
		normalized, err := NormalizeText(*u.Text)
		if err != nil {
			return err
		}
		text = normalized
	}
	i.Text = text
	if u.Completed != nil {
		i.Completed = *u.Completed
	}
	i.UpdatedAt = time.Now().UTC()
	return nil
}
