package domain

import "errors"

type AssetContentType string

const (
	ContentTypeJPEG AssetContentType = "image/jpeg"
	ContentTypePNG  AssetContentType = "image/png"
	ContentTypeMP4  AssetContentType = "video/mp4"
	ContentTypeWebM AssetContentType = "video/webm"
	ContentTypeMPEG AssetContentType = "audio/mpeg"
)

var ErrUnsupportedContentType = errors.New("unsupported asset content type")

// ParseAssetContentType accepts only the content types the upload surface takes.
func ParseAssetContentType(s string) (AssetContentType, error) {
	switch ct := AssetContentType(s); ct {
	case ContentTypeJPEG, ContentTypePNG, ContentTypeMP4, ContentTypeWebM, ContentTypeMPEG:
		return ct, nil
	}
	return "", ErrUnsupportedContentType
}

type Asset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FileType  string `json:"file_type"`
	FolderID  string `json:"folder_id"`
	ImageKey  string `json:"image_key,omitempty"`
	CreatedTS int64  `json:"created_ts"`
	URL       string `json:"url"`
}

type QuotaDetails struct {
	API  float64 `json:"api"`
	Seat float64 `json:"seat"`
}

type Quota struct {
	RemainingQuota float64      `json:"remaining_quota"`
	Details        QuotaDetails `json:"details"`
}

type UserInfo struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
