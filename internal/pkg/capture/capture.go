package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/kbinani/screenshot"
)

const thumbnailEdge = 150

// Source 可捕获的屏幕源
type Source struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"` // data URL 形式的 PNG 缩略图
}

// Picker 屏幕源枚举接口
type Picker interface {
	Sources() ([]Source, error)
}

type displayPicker struct{}

// NewPicker 返回基于系统显示器枚举的源选择器。
// 单窗口级枚举依赖桌面环境的合成器接口，这里只枚举整屏。
func NewPicker() Picker {
	return &displayPicker{}
}

func (p *displayPicker) Sources() ([]Source, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no capturable display found")
	}

	sources := make([]Source, 0, n)
	for i := 0; i < n; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		img, err := screenshot.CaptureRect(bounds)
		if err != nil {
			return nil, fmt.Errorf("capture display %d failed: %w", i, err)
		}

		thumb := imaging.Fit(img, thumbnailEdge, thumbnailEdge, imaging.Box)
		var buf bytes.Buffer
		if err := png.Encode(&buf, thumb); err != nil {
			return nil, err
		}

		sources = append(sources, Source{
			ID:        fmt.Sprintf("screen:%d", i),
			Name:      fmt.Sprintf("Screen %d (%dx%d)", i+1, bounds.Dx(), bounds.Dy()),
			Thumbnail: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		})
	}
	return sources, nil
}
