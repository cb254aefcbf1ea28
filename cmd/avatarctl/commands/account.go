package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkeye/avatarstream/internal/domain"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show remaining API quota",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireAPIKey()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		quota, err := accountClient(cfg).RemainingQuota(ctx)
		if err != nil {
			return fmt.Errorf("get quota failed: %w", err)
		}
		return outputResult(quota)
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the account owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireAPIKey()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		user, err := accountClient(cfg).CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("get user failed: %w", err)
		}
		return outputResult(user)
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file_path>",
	Short: "Upload an asset",
	Long: `Upload an image, video or audio asset.

The content type is derived from the file extension unless --content-type is
given. Accepted types: image/jpeg, image/png, video/mp4, video/webm, audio/mpeg.

Examples:
  avatarctl upload background.png
  avatarctl upload intro.bin --content-type video/mp4 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		cfg, err := requireAPIKey()
		if err != nil {
			return err
		}

		ct, err := cmd.Flags().GetString("content-type")
		if err != nil {
			return fmt.Errorf("failed to read 'content-type' flag: %w", err)
		}
		if ct == "" {
			ct = contentTypeFor(filePath)
		}
		contentType, err := domain.ParseAssetContentType(ct)
		if err != nil {
			return fmt.Errorf("%s: %w", filePath, err)
		}

		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("cannot read file: %w", err)
		}
		printVerbose("File: %s (%d bytes, %s)", filePath, len(data), contentType)

		ctx, cancel := context.WithTimeout(cmd.Context(), 300*time.Second)
		defer cancel()

		asset, err := accountClient(cfg).Upload(ctx, data, string(contentType))
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		return outputResult(asset)
	},
}

func init() {
	uploadCmd.Flags().String("content-type", "", "content type of the file (default: from extension)")
}

var extContentTypes = map[string]domain.AssetContentType{
	".jpg":  domain.ContentTypeJPEG,
	".jpeg": domain.ContentTypeJPEG,
	".png":  domain.ContentTypePNG,
	".mp4":  domain.ContentTypeMP4,
	".webm": domain.ContentTypeWebM,
	".mp3":  domain.ContentTypeMPEG,
}

// contentTypeFor returns "" for extensions the upload surface does not take.
func contentTypeFor(path string) string {
	return string(extContentTypes[strings.ToLower(filepath.Ext(path))])
}
