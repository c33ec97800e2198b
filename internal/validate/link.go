package validate

import "fmt"

// Link rejects empty endpoints and self links between pages or cards.
func Link(from, to string) error {
	if from == "" || to == "" {
		return fmt.Errorf("%w: missing endpoint", ErrInvalidLink)
	}
	if from == to {
		return fmt.Errorf("%w: self-referential link", ErrInvalidLink)
	}
	return nil
}
