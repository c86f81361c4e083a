package plugin

import "fmt"

// Transformers is a global map of ValueTransformer plugins.
// The metric is the configured poll metric, only json_key uses it.
var Transformers = map[string]func(metric string) ValueTransformer{
	"kv": func(string) ValueTransformer {
		return &KVPlugin{}
	},
	"calc_rate": func(string) ValueTransformer {
		return &CalcRatePlugin{}
	},
	"json_key": func(metric string) ValueTransformer {
		return NewJSONTransformer(metric)
	},
}

func TransformerLookup(name, metric string) (ValueTransformer, error) {
	factory, ok := Transformers[name]
	if !ok {
		return nil, fmt.Errorf("unknown transformer: %s", name)
	}
	return factory(metric), nil
}
