package restyutil

import (
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(id string, contents string)
}

// DumpMessages writes every request/response pair of the client to output,
// named "<prefix>-<n>.txt". A nil output is a no-op.
func DumpMessages(client *resty.Client, prefix string, output Output) {
	if output == nil {
		return
	}
	var counter atomic.Uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := fmt.Sprintf("%s-%03d.txt", prefix, counter.Add(1))
		output.Write(id, formatHttpMessage(res))
		return nil
	})
}
