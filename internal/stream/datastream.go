package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// 数据流协议中每种事件的行前缀。
var dataStreamCodes = map[Kind]string{
	KindText:       "0",
	KindData:       "2",
	KindError:      "3",
	KindToolCall:   "9",
	KindToolResult: "a",
	KindFinishStep: "e",
	KindFinish:     "d",
	KindStartStep:  "f",
	KindReasoning:  "g",
}

// EncodeDataStream 把事件编码为一行 "<code>:<json>\n"。
func EncodeDataStream(e Event) ([]byte, error) {
	code, ok := dataStreamCodes[e.Kind]
	if !ok {
		return nil, fmt.Errorf("stream: unknown event kind %q", e.Kind)
	}
	b, err := json.Marshal(e.payload())
	if err != nil {
		return nil, err
	}
	line := make([]byte, 0, len(code)+len(b)+2)
	line = append(line, code...)
	line = append(line, ':')
	line = append(line, b...)
	line = append(line, '\n')
	return line, nil
}

// DataStreamWriter 以数据流协议写 HTTP 响应，每个事件后立即 flush。
type DataStreamWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewDataStreamWriter 设置流式响应头并返回写入器。
func NewDataStreamWriter(w http.ResponseWriter) *DataStreamWriter {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Vercel-AI-Data-Stream", "v1")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	return &DataStreamWriter{w: w, flusher: flusher}
}

func (d *DataStreamWriter) Write(e Event) error {
	line, err := EncodeDataStream(e)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.w.Write(line); err != nil {
		return err
	}
	if d.flusher != nil {
		d.flusher.Flush()
	}
	return nil
}
