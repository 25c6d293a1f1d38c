package plugin

// Result is what Call hands back to the host. Exactly one of Post, Success
// or Error is set.
type Result struct {
	Post    *Descriptor   `json:"post,omitempty"`
	Success string        `json:"success,omitempty"`
	Error   string        `json:"error,omitempty"`
	Kind    Kind          `json:"kind,omitempty"`
	Failed  []SendFailure `json:"failed,omitempty"`
}

// Descriptor describes the post operation for discovery.
type Descriptor struct {
	Text string `json:"text"`
	Info *Info  `json:"_info,omitempty"`
}

type Info struct {
	Doc Doc `json:"doc"`
}

type Doc struct {
	Short string `json:"short"`
}

// SendFailure records one channel the text could not be posted to.
type SendFailure struct {
	Channel string `json:"channel"`
	Error   string `json:"error"`
}

// IsError reports whether r is an error result.
func (r Result) IsError() bool { return r.Error != "" }

func errorResult(kind Kind, msg string) Result {
	return Result{Error: msg, Kind: kind}
}
