package filters

import (
	"time"
)

const msPerDay int64 = 86400000

// AllTime selects the whole history in RangeWindow.
const AllTime = -1

// RangeState is the selection of a range filter. Start and End are compared
// against Field with >= and <=.
type RangeState struct {
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
	Days  int    `json:"range,omitempty" yaml:"range,omitempty"`
	Start any    `json:"start,omitempty" yaml:"start,omitempty"`
	End   any    `json:"end,omitempty" yaml:"end,omitempty"`
}

// DateRange is one selectable range of a range filter.
type DateRange struct {
	NumberOfDays int    `json:"numberOfDays" yaml:"numberOfDays"`
	Description  string `json:"description" yaml:"description"`
}

// RangeConfig configures the range filter of a widget.
type RangeConfig struct {
	Enabled      bool        `json:"enabled" yaml:"enabled"`
	Field        string      `json:"field" yaml:"field"`
	DefaultValue int         `json:"defaultValue" yaml:"defaultValue"`
	DateRanges   []DateRange `json:"dateRanges,omitempty" yaml:"dateRanges,omitempty"`
}

// RangeWindow returns the epoch millisecond window of the last days days
// ending at now. AllTime yields [0, now].
func RangeWindow(now time.Time, days int) (start, end int64) {
	end = now.UnixMilli()
	if days == AllTime {
		return 0, end
	}
	return end - msPerDay*int64(days), end
}

// MultiValueState is the selection of a multi-value filter.
//
// Selected holds indices into the option list; Fields groups the selected
// option values by field.
type MultiValueState struct {
	Selected []int            `json:"selected,omitempty" yaml:"selected,omitempty"`
	Fields   map[string][]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// SelectMulti builds the state for the selected option indices. Indices
// outside options are kept in Selected but contribute no values.
func SelectMulti(selected []int, options []Option) MultiValueState {
	st := MultiValueState{Selected: selected, Fields: map[string][]any{}}
	for _, idx := range selected {
		if idx < 0 || idx >= len(options) {
			continue
		}
		opt := options[idx]
		st.Fields[opt.Field] = append(st.Fields[opt.Field], opt.Value)
	}
	return st
}

// VisibleSelection drops selected indices that fall outside options. Option
// lists shrink when a range filter narrows them, so previously selected
// indices may no longer exist.
func VisibleSelection(selected []int, options []Option) []int {
	out := make([]int, 0, len(selected))
	for _, idx := range selected {
		if idx >= 0 && idx < len(options) {
			out = append(out, idx)
		}
	}
	return out
}
