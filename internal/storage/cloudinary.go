// README: Cloudinary adapter; verifies that uploaded media actually exists.
package storage

import (
	"context"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
)

// CloudinaryBlobs answers existence checks for delivery and pickup videos.
// Clients upload directly to Cloudinary; the backend only ever sees the URL,
// so it must verify the asset before trusting it.
type CloudinaryBlobs struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryBlobs(cloudinaryURL string) (*CloudinaryBlobs, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, err
	}
	return &CloudinaryBlobs{cld: cld}, nil
}

func (b *CloudinaryBlobs) Exists(ctx context.Context, rawURL string) (bool, error) {
	publicID, assetType := parseAssetURL(rawURL)
	if publicID == "" {
		return false, nil
	}
	res, err := b.cld.Admin.Asset(ctx, admin.AssetParams{
		PublicID:  publicID,
		AssetType: assetType,
	})
	if err != nil {
		return false, err
	}
	if res.Error.Message != "" {
		return false, nil
	}
	return res.PublicID != "", nil
}

// parseAssetURL pulls the public ID and asset type out of a delivery URL,
// e.g. .../video/upload/v1712345/bookings/clip.mp4 -> "bookings/clip".
func parseAssetURL(rawURL string) (string, api.AssetType) {
	assetType := api.Image
	if strings.Contains(rawURL, "/video/") {
		assetType = api.Video
	}

	parts := strings.Split(rawURL, "/upload/")
	if len(parts) != 2 {
		return "", assetType
	}
	path := parts[1]

	segments := strings.Split(path, "/")
	if len(segments) > 1 && strings.HasPrefix(segments[0], "v") {
		allDigits := len(segments[0]) > 1
		for _, c := range segments[0][1:] {
			if c < '0' || c > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			segments = segments[1:]
		}
	}
	publicID := strings.Join(segments, "/")
	if i := strings.LastIndex(publicID, "."); i > 0 {
		publicID = publicID[:i]
	}
	return publicID, assetType
}
