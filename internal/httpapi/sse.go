package httpapi

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/coderun-dev/fleet/internal/model"
)

func writeSSE(w io.Writer, evt model.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, string(data))
}
