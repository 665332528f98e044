package controlhead

import (
	"fmt"
	"slices"

	"github.com/radioconsole/rcd/internal/domain"
)

// Binding ties configured softkeys to buttons on one head.
type Binding struct {
	head     *Map
	toButton map[domain.SoftkeyName]string
	toKey    map[string]domain.SoftkeyName
}

// NewBinding validates a button-name to softkey table against the head map.
// Buttons bound to an empty softkey name are left unbound.
func NewBinding(head *Map, buttons map[string]domain.SoftkeyName) (*Binding, error) {
	b := &Binding{
		head:     head,
		toButton: make(map[domain.SoftkeyName]string, len(buttons)),
		toKey:    make(map[string]domain.SoftkeyName, len(buttons)),
	}

	names := make([]string, 0, len(buttons))
	for name := range buttons {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, raw := range names {
		key := buttons[raw]
		if key == "" {
			continue
		}
		button := NormalizeButtonName(raw)
		if _, ok := head.ButtonCode(button); !ok {
			return nil, fmt.Errorf("%w: %q on %s head", ErrUnknownButton, raw, head.Head())
		}
		if prev, ok := b.toButton[key]; ok {
			return nil, fmt.Errorf("%w: %s on %q and %q", ErrDuplicateBinding, key, prev, button)
		}
		b.toButton[key] = button
		b.toKey[button] = key
	}

	return b, nil
}

func (b *Binding) Head() *Map { return b.head }

// Button returns the button bound to a softkey.
func (b *Binding) Button(key domain.SoftkeyName) (domain.Button, error) {
	name, ok := b.toButton[key]
	if !ok {
		return domain.Button{}, fmt.Errorf("%w: %s", ErrUnboundSoftkey, key)
	}
	code, ok := b.head.ButtonCode(name)
	if !ok {
		return domain.Button{}, fmt.Errorf("%w: %q", ErrUnknownButton, name)
	}
	return domain.Button{Name: name, Code: code}, nil
}

// ButtonCodeForSoftkey composes the softkey binding with the head's button table.
func (b *Binding) ButtonCodeForSoftkey(key domain.SoftkeyName) (byte, error) {
	btn, err := b.Button(key)
	if err != nil {
		return 0, err
	}
	return btn.Code, nil
}

// SoftkeyForButton is the reverse of Button.
func (b *Binding) SoftkeyForButton(button string) (domain.SoftkeyName, bool) {
	key, ok := b.toKey[NormalizeButtonName(button)]
	return key, ok
}

// SoftkeyForIndicator infers which softkey a positional indicator describes.
func (b *Binding) SoftkeyForIndicator(indicator string) (domain.SoftkeyName, bool) {
	button, ok := b.head.SlotButton(indicator)
	if !ok {
		return "", false
	}
	return b.SoftkeyForButton(button)
}

// Softkeys builds the ordered softkey list for a configured key order.
func (b *Binding) Softkeys(order []domain.SoftkeyName) ([]domain.Softkey, error) {
	out := make([]domain.Softkey, 0, len(order))
	for _, key := range order {
		btn, err := b.Button(key)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Softkey{
			Name:        key,
			Description: key.Description(),
			State:       domain.SoftkeyOff,
			Button:      btn,
		})
	}
	return out, nil
}
