package payment

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ParseEvent decodes a provider webhook event from its raw bytes. Unknown
// fields are skipped, so provider-side payload growth never breaks parsing.
// Only call this after VerifySignature has accepted the same bytes.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event

	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ev.ID = v
			return nil
		case "type":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ev.Type = v
			return nil
		case "data":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "object" {
					return d.Skip()
				}
				return decodeSession(d, &ev.Session)
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode event")
	}

	if ev.Type == "" {
		return nil, errors.New("event missing type")
	}
	return &ev, nil
}

func decodeSession(d *jx.Decoder, s *CheckoutSession) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			s.ID = v
			return nil
		case "payment_intent":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			s.PaymentIntent = v
			return nil
		case "customer_email":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			s.CustomerEmail = v
			return nil
		case "metadata":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s.Metadata = make(map[string]string)
			return d.Obj(func(d *jx.Decoder, key string) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				s.Metadata[key] = v
				return nil
			})
		default:
			return d.Skip()
		}
	})
}
