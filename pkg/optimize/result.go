package optimize

import "github.com/gridlabs/gridopt/pkg/gridsim"

// Result is one evaluated candidate: its parameters, the simulation results
// on both data segments and the combined score used for ranking.
type Result struct {
	Parameters    gridsim.Parameters `json:"parameters"`
	Backtest      *gridsim.Result    `json:"backtest"`
	Forward       *gridsim.Result    `json:"forward"`
	CombinedScore float64            `json:"combined_score"`

	key string
}

// Key is the canonical identity of the candidate's parameters; one key is
// evaluated at most once per search.
func (r *Result) Key() string {
	return r.key
}
