package repository

import (
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// whereBuilder accumulates SQL conditions with positional pgx arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *whereBuilder) sql() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// eventWhere renders f as a WHERE clause over the events table aliased e.
func eventWhere(f model.EventFilter) (string, []any) {
	var b whereBuilder

	if f.Text != "" {
		p := b.arg("%" + escapeLike(f.Text) + "%")
		b.add(fmt.Sprintf("(e.title ILIKE %s OR e.annotation ILIKE %s)", p, p))
	}
	if len(f.Categories) > 0 {
		b.add("e.category_id = ANY(" + b.arg(f.Categories) + ")")
	}
	if len(f.Initiators) > 0 {
		b.add("e.initiator_id = ANY(" + b.arg(f.Initiators) + ")")
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		b.add("e.state = ANY(" + b.arg(states) + ")")
	}
	if f.Paid != nil {
		b.add("e.paid = " + b.arg(*f.Paid))
	}
	b.add(fmt.Sprintf("e.event_date BETWEEN %s AND %s", b.arg(f.RangeStart), b.arg(f.RangeEnd)))
	if f.OnlyAvailable {
		b.add("(e.participant_limit = 0 OR e.confirmed_requests < e.participant_limit)")
	}

	return b.sql(), b.args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
