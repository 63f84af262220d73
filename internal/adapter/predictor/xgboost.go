// Package predictor implements the consumption regression model behind
// port.Predictor: a local evaluator for XGBoost JSON models and an HTTP client
// for a remote model server.
package predictor

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"demandcast/internal/domain"
)

// Booster evaluates a tree ensemble saved with XGBoost's save_model(".json").
// Only inference is supported.
type Booster struct {
	trees        []tree
	weights      []float64
	baseMargin   float64
	link         func(float64) float64
	featureNames []string
	objective    string
}

type tree struct {
	left        []int
	right       []int
	splitIndex  []int
	splitCond   []float32
	defaultLeft []bool
}

// jsonFlag accepts both the boolean and the 0/1 encodings XGBoost has used
// for default_left.
type jsonFlag bool

func (f *jsonFlag) UnmarshalJSON(b []byte) error {
	switch s := strings.TrimSpace(string(b)); s {
	case "true", "1":
		*f = true
	case "false", "0":
		*f = false
	default:
		return errors.Newf("invalid flag %s", s)
	}
	return nil
}

type modelFile struct {
	Learner struct {
		FeatureNames    []string `json:"feature_names"`
		GradientBooster struct {
			Name       string     `json:"name"`
			Model      *treeModel `json:"model"`
			WeightDrop []float64  `json:"weight_drop"`
			GBTree     *struct {
				Model *treeModel `json:"model"`
			} `json:"gbtree"`
		} `json:"gradient_booster"`
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type treeModel struct {
	Trees []struct {
		LeftChildren    []int      `json:"left_children"`
		RightChildren   []int      `json:"right_children"`
		SplitIndices    []int      `json:"split_indices"`
		SplitConditions []float32  `json:"split_conditions"`
		DefaultLeft     []jsonFlag `json:"default_left"`
	} `json:"trees"`
}

// LoadBooster reads a model file from disk.
func LoadBooster(path string) (*Booster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "read model %s", path),
			"Set predictor.model_path to an XGBoost model saved as JSON.",
		)
	}
	b, err := ParseBooster(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", path)
	}
	return b, nil
}

// ParseBooster decodes a JSON model. When the model carries no feature names
// the canonical domain.FeatureNames order is assumed.
func ParseBooster(data []byte) (*Booster, error) {
	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, errors.Wrap(err, "decode model json")
	}
	l := mf.Learner

	gb := l.GradientBooster
	model := gb.Model
	switch gb.Name {
	case "gbtree", "":
	case "dart":
		if gb.GBTree != nil {
			model = gb.GBTree.Model
		}
	default:
		return nil, errors.Newf("unsupported booster %q", gb.Name)
	}
	if model == nil || len(model.Trees) == 0 {
		return nil, errors.New("model has no trees")
	}

	b := &Booster{
		featureNames: l.FeatureNames,
		objective:    l.Objective.Name,
	}
	if len(b.featureNames) == 0 {
		b.featureNames = domain.FeatureNames
	}

	for i, jt := range model.Trees {
		n := len(jt.LeftChildren)
		if len(jt.RightChildren) != n || len(jt.SplitIndices) != n || len(jt.SplitConditions) != n {
			return nil, errors.Newf("tree %d: inconsistent node arrays", i)
		}
		t := tree{
			left:        jt.LeftChildren,
			right:       jt.RightChildren,
			splitIndex:  jt.SplitIndices,
			splitCond:   jt.SplitConditions,
			defaultLeft: make([]bool, n),
		}
		for j := 0; j < n && j < len(jt.DefaultLeft); j++ {
			t.defaultLeft[j] = bool(jt.DefaultLeft[j])
		}
		for j := 0; j < n; j++ {
			if t.left[j] == -1 {
				continue
			}
			if t.left[j] <= j || t.left[j] >= n || t.right[j] <= j || t.right[j] >= n {
				return nil, errors.Newf("tree %d: node %d has invalid children", i, j)
			}
			if t.splitIndex[j] < 0 || t.splitIndex[j] >= len(b.featureNames) {
				return nil, errors.Newf("tree %d: node %d splits on unknown feature %d", i, j, t.splitIndex[j])
			}
		}
		b.trees = append(b.trees, t)

		w := 1.0
		if gb.Name == "dart" && i < len(gb.WeightDrop) {
			w = gb.WeightDrop[i]
		}
		b.weights = append(b.weights, w)
	}

	base, err := parseBaseScore(l.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}
	b.baseMargin, b.link, err = objectiveLink(l.Objective.Name, base)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// parseBaseScore handles both "5E-1" and the bracketed "[5E-1]" form.
func parseBaseScore(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse base_score %q", s)
	}
	return v, nil
}

// objectiveLink returns the margin of base_score and the inverse link applied
// to the summed margin.
func objectiveLink(objective string, base float64) (float64, func(float64) float64, error) {
	identity := func(x float64) float64 { return x }
	switch objective {
	case "", "reg:squarederror", "reg:linear", "reg:absoluteerror",
		"reg:pseudohubererror", "reg:quantileerror", "reg:squaredlogerror":
		return base, identity, nil
	case "count:poisson", "reg:gamma", "reg:tweedie":
		if base <= 0 {
			return 0, nil, errors.Newf("base_score %g invalid for %s", base, objective)
		}
		return math.Log(base), math.Exp, nil
	case "reg:logistic", "binary:logistic":
		if base <= 0 || base >= 1 {
			return 0, nil, errors.Newf("base_score %g invalid for %s", base, objective)
		}
		return math.Log(base / (1 - base)), func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }, nil
	default:
		return 0, nil, errors.Newf("unsupported objective %q", objective)
	}
}

// FeatureNames returns the column order the model expects.
func (b *Booster) FeatureNames() []string {
	return b.featureNames
}

// Predict evaluates the ensemble for one feature row.
func (b *Booster) Predict(ctx context.Context, f domain.Features) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	row, err := f.Vector(b.featureNames)
	if err != nil {
		return 0, err
	}
	return b.predictRow(row), nil
}

func (b *Booster) predictRow(row []float64) float64 {
	margin := b.baseMargin
	for i, t := range b.trees {
		margin += b.weights[i] * t.leaf(row)
	}
	return b.link(margin)
}

// leaf walks one tree. Values compare as float32, matching how XGBoost stores
// split thresholds; NaN takes the node's default branch.
func (t tree) leaf(row []float64) float64 {
	n := 0
	for t.left[n] != -1 {
		x := row[t.splitIndex[n]]
		switch {
		case math.IsNaN(x):
			if t.defaultLeft[n] {
				n = t.left[n]
			} else {
				n = t.right[n]
			}
		case float32(x) < t.splitCond[n]:
			n = t.left[n]
		default:
			n = t.right[n]
		}
	}
	return float64(t.splitCond[n])
}
