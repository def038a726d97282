package s3

import (
	"mime"
	"strings"
)

// secureImageExtensions 列出允許上傳的圖片 MIME 類型及其對應的副檔名。
// SVG 這類可以內嵌腳本的格式刻意不在名單內
var secureImageExtensions = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
	"image/webp": "webp",
}

// CheckSecureImageAndGetExtension 檢查給定的 MIME 類型是否為允許的圖片類型，
// 並返回對應的副檔名。帶參數的 Content-Type（如 image/png; charset=binary）
// 會先整理成純媒體類型再比對
func CheckSecureImageAndGetExtension(mimeType string) (bool, string) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	ext, ok := secureImageExtensions[mediaType]
	return ok, ext
}
