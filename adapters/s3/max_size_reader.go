package s3

import (
	"fmt"
	"io"
)

var ErrReachLimitType *ReachLimitError

// ReachLimitError 表示讀取的內容超過了允許的最大長度
type ReachLimitError struct {
	MaxBytes int64
}

func (e *ReachLimitError) Error() string {
	return fmt.Sprintf("reach limit of %s", FormatBytes(e.MaxBytes))
}

// NewMaxSizeReader 包裝一個 io.Reader 並限制可以讀取的總長度，
// 超過限制時返回 ReachLimitError。
func NewMaxSizeReader(r io.Reader, maxSize int64) io.Reader {
	return &maxSizeReader{reader: r, limit: maxSize, remaining: maxSize}
}

type maxSizeReader struct {
	reader    io.Reader
	limit     int64 // 限制的總長度
	remaining int64 // 還可以讀取的長度
}

func (r *maxSizeReader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	// 最多多讀一個byte，用來判斷上游是否還有超出限制的內容
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}
	n, err = r.reader.Read(p)

	// 沒有超過限制，回傳原始資料
	if int64(n) <= r.remaining {
		r.remaining -= int64(n)
		return n, err
	}

	// 超過限制，截斷到剩餘可讀長度並回報錯誤
	n = int(r.remaining)
	r.remaining = 0
	return n, &ReachLimitError{r.limit}
}
