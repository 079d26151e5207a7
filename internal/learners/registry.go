package learners

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"slices"
	"sort"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
	"github.com/microsoft/sweep/internal/dataset"
	"github.com/microsoft/sweep/internal/models"
)

// Model family names.
const (
	FamilyDecisionTree = "decision_tree"
	FamilyRandomForest = "random_forest"
	FamilyMostFrequent = "most_frequent"
)

// FitFunc fits one family. Returning an *models.InvalidConfigurationError
// marks the candidate itself as unusable.
type FitFunc func(ctx context.Context, c models.CandidateConfig, training *dataset.Dataset) (Model, error)

// Registry maps family names to fit functions.
type Registry struct {
	fits map[string]FitFunc
}

// NewRegistry returns a registry holding the built-in families.
func NewRegistry() *Registry {
	r := &Registry{fits: map[string]FitFunc{}}
	r.Register(FamilyDecisionTree, fitDecisionTree)
	r.Register(FamilyRandomForest, fitRandomForest)
	r.Register(FamilyMostFrequent, fitMostFrequent)
	return r
}

// Register adds or replaces a family.
func (r *Registry) Register(family string, fn FitFunc) {
	r.fits[family] = fn
}

// Families lists the registered family names, sorted.
func (r *Registry) Families() []string {
	names := make([]string, 0, len(r.fits))
	for n := range r.fits {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether family is registered.
func (r *Registry) Has(family string) bool {
	_, ok := r.fits[family]
	return ok
}

// Fit trains the model described by c. Unknown families and bad
// hyperparameters fail with models.ErrInvalidConfiguration.
func (r *Registry) Fit(ctx context.Context, c models.CandidateConfig, training *dataset.Dataset) (Model, error) {
	fn, ok := r.fits[c.Family()]
	if !ok {
		return nil, models.InvalidConfiguration(c, "unknown model family %q (known: %v)", c.Family(), r.Families())
	}
	return fn(ctx, c, training)
}

type treeOptions struct {
	MaxDepth        *int  `mapstructure:"max_depth"`
	MinSamplesSplit *int  `mapstructure:"min_samples_split"`
	MinSamplesLeaf  *int  `mapstructure:"min_samples_leaf"`
	RandomState     int64 `mapstructure:"random_state"`
}

func (o treeOptions) params(c models.CandidateConfig) (TreeParams, error) {
	p := DefaultTreeParams()
	if o.MaxDepth != nil {
		if *o.MaxDepth < 1 {
			return p, models.InvalidConfiguration(c, "max_depth must be >= 1, got %d", *o.MaxDepth)
		}
		p.MaxDepth = *o.MaxDepth
	}
	if o.MinSamplesSplit != nil {
		if *o.MinSamplesSplit < 2 {
			return p, models.InvalidConfiguration(c, "min_samples_split must be >= 2, got %d", *o.MinSamplesSplit)
		}
		p.MinSamplesSplit = *o.MinSamplesSplit
	}
	if o.MinSamplesLeaf != nil {
		if *o.MinSamplesLeaf < 1 {
			return p, models.InvalidConfiguration(c, "min_samples_leaf must be >= 1, got %d", *o.MinSamplesLeaf)
		}
		p.MinSamplesLeaf = *o.MinSamplesLeaf
	}
	return p, nil
}

type forestOptions struct {
	Tree        treeOptions `mapstructure:",squash"`
	NEstimators *int        `mapstructure:"n_estimators"`
	MaxFeatures any         `mapstructure:"max_features"`
	Bootstrap   *bool       `mapstructure:"bootstrap"`
}

func fitDecisionTree(ctx context.Context, c models.CandidateConfig, training *dataset.Dataset) (Model, error) {
	var opts treeOptions
	if err := decodeParams(c, &opts); err != nil {
		return nil, err
	}
	p, err := opts.params(c)
	if err != nil {
		return nil, err
	}
	return FitTree(ctx, training, p, rand.New(rand.NewSource(opts.RandomState)))
}

func fitRandomForest(ctx context.Context, c models.CandidateConfig, training *dataset.Dataset) (Model, error) {
	var opts forestOptions
	if err := decodeParams(c, &opts); err != nil {
		return nil, err
	}
	tp, err := opts.Tree.params(c)
	if err != nil {
		return nil, err
	}

	p := ForestParams{Trees: 100, Tree: tp, Bootstrap: true, Seed: opts.Tree.RandomState}
	if opts.NEstimators != nil {
		if *opts.NEstimators < 1 {
			return nil, models.InvalidConfiguration(c, "n_estimators must be >= 1, got %d", *opts.NEstimators)
		}
		p.Trees = *opts.NEstimators
	}
	if opts.Bootstrap != nil {
		p.Bootstrap = *opts.Bootstrap
	}
	if p.Tree.MaxFeatures, err = maxFeatures(c, opts.MaxFeatures, training.NumFeatures()); err != nil {
		return nil, err
	}
	return FitForest(ctx, training, p)
}

func fitMostFrequent(_ context.Context, c models.CandidateConfig, training *dataset.Dataset) (Model, error) {
	var opts struct{}
	if err := decodeParams(c, &opts); err != nil {
		return nil, err
	}
	return FitMostFrequent(training)
}

// maxFeatures resolves the max_features hyperparameter against the number
// of features in the training set.
func maxFeatures(c models.CandidateConfig, raw any, nf int) (int, error) {
	switch v := raw.(type) {
	case nil:
		return maxFeatures(c, "sqrt", nf)
	case string:
		switch v {
		case "sqrt":
			return max(1, int(math.Sqrt(float64(nf)))), nil
		case "log2":
			return max(1, int(math.Log2(float64(nf)))), nil
		case "all":
			return nf, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, models.InvalidConfiguration(c, "max_features must be sqrt, log2, all or an integer, got %q", v)
		}
		return maxFeatures(c, n, nf)
	case int:
		if v < 1 || v > nf {
			return 0, models.InvalidConfiguration(c, "max_features must be between 1 and %d, got %d", nf, v)
		}
		return v, nil
	case int64:
		return maxFeatures(c, int(v), nf)
	case float64:
		if v != math.Trunc(v) {
			return 0, models.InvalidConfiguration(c, "max_features must be an integer, got %v", v)
		}
		return maxFeatures(c, int(v), nf)
	default:
		return 0, models.InvalidConfiguration(c, "max_features has unsupported type %T", raw)
	}
}

// decodeParams copies the candidate's hyperparameters into out. Unknown
// names, wrong types and fractional values for integer fields are errors.
func decodeParams(c models.CandidateConfig, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		DecodeHook:  integralHook,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(c.Params()); err != nil {
		return &models.InvalidConfigurationError{Candidate: c, Err: err}
	}
	return nil
}

var intKinds = []reflect.Kind{reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64}

// integralHook stops mapstructure from silently truncating 2.5 into 2.
var integralHook = mapstructure.DecodeHookFuncKind(func(from, to reflect.Kind, data any) (any, error) {
	if (from != reflect.Float32 && from != reflect.Float64) || !slices.Contains(intKinds, to) {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("expected an integer, got %v", data)
	}
	return data, nil
})
