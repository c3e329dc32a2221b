package llm

import "strings"

// segment 是一段输出文本，reasoning 表示位于推理标签内部。
type segment struct {
	text      string
	reasoning bool
}

// tagExtractor 把 <tag>...</tag> 之间的内容分离为推理片段。
// 标签可能被拆分在多个增量中，因此末尾疑似标签前缀的部分会暂存到下一次。
type tagExtractor struct {
	open, close string
	inside      bool
	pending     string
}

func newTagExtractor(tag string) *tagExtractor {
	if tag == "" {
		return &tagExtractor{}
	}
	return &tagExtractor{open: "<" + tag + ">", close: "</" + tag + ">"}
}

func (e *tagExtractor) push(delta string) []segment {
	if e.open == "" {
		if delta == "" {
			return nil
		}
		return []segment{{text: delta}}
	}

	buf := e.pending + delta
	e.pending = ""
	var out []segment
	for buf != "" {
		marker := e.open
		if e.inside {
			marker = e.close
		}
		if i := strings.Index(buf, marker); i >= 0 {
			out = appendSegment(out, buf[:i], e.inside)
			buf = buf[i+len(marker):]
			e.inside = !e.inside
			continue
		}
		keep := partialSuffix(buf, marker)
		out = appendSegment(out, buf[:len(buf)-keep], e.inside)
		e.pending = buf[len(buf)-keep:]
		break
	}
	return out
}

// flush 输出暂存的内容，在流结束时调用。
func (e *tagExtractor) flush() []segment {
	rest := e.pending
	e.pending = ""
	return appendSegment(nil, rest, e.inside)
}

func appendSegment(out []segment, text string, reasoning bool) []segment {
	if text == "" {
		return out
	}
	return append(out, segment{text: text, reasoning: reasoning})
}

// partialSuffix 返回 s 末尾与 marker 前缀重合的最大长度。
func partialSuffix(s, marker string) int {
	longest := len(marker) - 1
	if longest > len(s) {
		longest = len(s)
	}
	for n := longest; n > 0; n-- {
		if strings.HasSuffix(s, marker[:n]) {
			return n
		}
	}
	return 0
}
