package commands

import (
	"strconv"

	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/domain/result"
	shelfrec "github.com/kailas-cloud/shelfrec/pkg/sdk"
)

// view is a rendered-ready result, built from either source.
type view struct {
	kind  kind.Kind
	path  string
	fuzzy int
	cards []card
}

type card struct {
	rank   int
	fields map[string]string
}

func viewFromResult(res result.Result) view {
	v := view{
		kind:  res.Kind(),
		path:  string(res.Path()),
		fuzzy: res.FuzzyCandidates(),
		cards: make([]card, 0, res.Len()),
	}
	for i, it := range res.Items() {
		fields := make(map[string]string, len(res.Columns()))
		for _, c := range res.Columns() {
			fields[c] = it.Value(c)
		}
		v.cards = append(v.cards, card{rank: i + 1, fields: fields})
	}
	return v
}

func viewFromRemote(k kind.Kind, recs shelfrec.Recommendations) view {
	v := view{
		kind:  k,
		path:  recs.Path,
		fuzzy: recs.FuzzyCandidates,
		cards: make([]card, 0, len(recs.Items)),
	}
	for _, it := range recs.Items {
		fields := make(map[string]string, len(it.Fields))
		for name, raw := range it.Fields {
			switch val := raw.(type) {
			case string:
				fields[name] = val
			case float64:
				fields[name] = strconv.FormatFloat(val, 'f', -1, 64)
			}
		}
		v.cards = append(v.cards, card{rank: it.Rank, fields: fields})
	}
	return v
}
