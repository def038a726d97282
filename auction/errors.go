package auction

import "errors"

// 領域錯誤，由 API 層對應到 HTTP 狀態碼
var (
	ErrNotFound         = errors.New("not found")
	ErrWrongAuctionType = errors.New("wrong auction type")
	ErrAlreadySold      = errors.New("item already sold")
	ErrAuctionEnded     = errors.New("auction has ended")
	ErrUpload           = errors.New("upload failed")
	ErrValidation       = errors.New("invalid input")
)

// isDomainError 判斷是否為可以直接回傳給呼叫者的領域錯誤
func isDomainError(err error) bool {
	for _, domain := range []error{
		ErrNotFound,
		ErrWrongAuctionType,
		ErrAlreadySold,
		ErrAuctionEnded,
		ErrUpload,
		ErrValidation,
	} {
		if errors.Is(err, domain) {
			return true
		}
	}
	return false
}
