package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/emporium/internal/broadcast"
	"github.com/roach88/emporium/internal/session"
	"github.com/roach88/emporium/internal/tabsync"
	"github.com/roach88/emporium/internal/upload"
)

// ImageOptions holds flags for the image commands.
type ImageOptions struct {
	*RootOptions
	Socket  string
	Wait    time.Duration
	NoSync  bool
	Channel string
}

// NewImageCommand creates the image command group.
func NewImageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "image",
		Short: "Change and watch product images across pages",
		Long: `Act as an admin or storefront page connected to the broadcast hub.
Start the hub first with "emporium hub".`,
	}
	cmd.PersistentFlags().StringVar(&opts.Socket, "socket", "", "hub socket path (default from config)")
	cmd.PersistentFlags().StringVar(&opts.Channel, "channel", "", "broadcast channel (default from config)")

	cmd.AddCommand(&cobra.Command{
		Use:   "set <product-id> <file|payload>",
		Short: "Upload an image file or set a raw payload",
		Long: `Set a product image and broadcast it to every open page. A path to a
JPEG, PNG, or WebP file is validated, resized to fit 800x600, and sent as a
JPEG data URI. Anything else is sent as-is.`,
		Example: `  emporium image set 1 ./bananas.png
  emporium image set 1 assets/images/products/fresh/bananas.jpg`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImageSet(opts, args[0], args[1], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <product-id>",
		Short: "Delete a product image on every open page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImageDelete(opts, args[0], cmd)
		},
	})

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print image changes as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImageWatch(opts, cmd)
		},
	}
	watch.Flags().BoolVar(&opts.NoSync, "no-sync", false, "do not request current images on start")
	cmd.AddCommand(watch)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Request current images from open pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImageSync(opts, cmd)
		},
	}
	syncCmd.Flags().DurationVar(&opts.Wait, "wait", 2*time.Second, "how long to collect responses")
	cmd.AddCommand(syncCmd)

	return cmd
}

// openTab opens a session connected to the hub. A hub that cannot be
// reached is a command error here, unlike in a page session.
func (o *ImageOptions) openTab(ctx context.Context, syncOnOpen bool) (*session.Session, error) {
	cat, err := o.LoadCatalog()
	if err != nil {
		return nil, err
	}
	logger := o.Logger()
	channel := o.Channel
	if channel == "" {
		channel = o.Config.Channel
	}
	socket := o.socketPath(o.Socket)

	s, err := session.Open(ctx, session.Options{
		Catalog:    cat,
		Opener:     broadcast.Dialer{SocketPath: socket, Logger: logger},
		Channel:    channel,
		SyncOnOpen: syncOnOpen,
		Logger:     logger,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open session", err)
	}
	if s.Sync.State() != tabsync.Listening {
		s.Close(ctx)
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("hub not reachable at %s (start it with \"emporium hub\")", socket))
	}
	return s, nil
}

func parseProductID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid product id %q", s))
	}
	return id, nil
}

// imageResult is the JSON payload for image set and delete.
type imageResult struct {
	ProductID int64          `json:"product_id"`
	Action    string         `json:"action"`
	Bytes     int            `json:"bytes,omitempty"`
	Upload    *upload.Result `json:"upload,omitempty"`
}

func runImageSet(opts *ImageOptions, idArg, source string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	out := opts.Formatter(cmd)

	id, err := parseProductID(idArg)
	if err != nil {
		return err
	}
	if source == "" {
		return NewExitError(ExitCommandError, "image payload is empty (use \"emporium image delete\" to remove an image)")
	}
	s, err := opts.openTab(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	p, ok := s.Catalog.Find(id)
	if !ok {
		_ = out.Error("UNKNOWN_PRODUCT", "product not found in catalog", id)
		return NewExitError(ExitFailure, fmt.Sprintf("product %d not found", id))
	}

	result := imageResult{ProductID: id, Action: "updated"}
	payload := source
	if info, statErr := os.Stat(source); statErr == nil && !info.IsDir() {
		data, err := os.ReadFile(source)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read image", err)
		}
		name := filepath.Base(source)
		res, err := upload.Process(upload.File{Name: name, Type: upload.TypeFor(name), Data: data}, id, p.Category, time.Now())
		if err != nil {
			var verr *upload.ValidationError
			if errors.As(err, &verr) {
				_ = out.Error("E_UPLOAD", verr.Error(), name)
				return WrapExitError(ExitFailure, "upload rejected", err)
			}
			return WrapExitError(ExitCommandError, "upload failed", err)
		}
		payload = res.Payload
		result.Upload = &res
		out.VerboseLog("optimized %s: %dx%d -> %dx%d", name, res.Original.Width, res.Original.Height, res.Optimized.Width, res.Optimized.Height)
	}
	result.Bytes = len(payload)

	if !s.Sync.UpdateImage(ctx, id, payload) || s.Sync.Stats().Sent == 0 {
		return NewExitError(ExitCommandError, "broadcast failed")
	}
	return out.SuccessText(result, func(w io.Writer) {
		fmt.Fprintf(w, "Image for %s (%d) updated, %d bytes broadcast.\n", p.Name, id, len(payload))
		if result.Upload != nil {
			fmt.Fprintf(w, "Saved as %s\n", result.Upload.ImagePath)
		}
	})
}

func runImageDelete(opts *ImageOptions, idArg string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)

	id, err := parseProductID(idArg)
	if err != nil {
		return err
	}
	s, err := opts.openTab(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	// Pages may hold an uploaded image this process never saw, so the
	// deletion goes out even when the local copy is absent.
	if !s.Sync.DeleteImage(ctx, id) {
		s.Sync.Broadcast(ctx, tabsync.Message{Kind: tabsync.KindImageDeleted, ProductID: id})
	}
	if s.Sync.Stats().Sent == 0 {
		return NewExitError(ExitCommandError, "broadcast failed")
	}
	return opts.Formatter(cmd).SuccessText(imageResult{ProductID: id, Action: "deleted"}, func(w io.Writer) {
		fmt.Fprintf(w, "Image for product %d deleted.\n", id)
	})
}

// watchEvent is one line of image watch output.
type watchEvent struct {
	ProductID int64               `json:"product_id"`
	Name      string              `json:"name"`
	Source    session.ImageSource `json:"image_source"`
	Bytes     int                 `json:"bytes"`
}

func runImageWatch(opts *ImageOptions, cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmdContext(cmd))
	defer cancel()

	s, err := opts.openTab(ctx, !opts.NoSync)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	w := cmd.OutOrStdout()
	enc := json.NewEncoder(w)
	stop := s.WatchImages(func(v session.View) {
		ev := watchEvent{ProductID: v.ID, Name: v.Name, Source: v.ImageSource, Bytes: len(v.Image)}
		if opts.Format == "json" {
			_ = enc.Encode(ev)
			return
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d bytes\n", ev.ProductID, ev.Name, ev.Source, ev.Bytes)
	})
	defer stop()

	if opts.Format != "json" {
		fmt.Fprintln(w, "Watching for image changes. Press Ctrl-C to stop.")
	}
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}

// syncResult is the JSON payload for image sync.
type syncResult struct {
	Images  int           `json:"images"`
	Updated int           `json:"updated"`
	Sync    tabsync.Stats `json:"sync"`
}

func runImageSync(opts *ImageOptions, cmd *cobra.Command) error {
	parent := cmdContext(cmd)
	s, err := opts.openTab(parent, true)
	if err != nil {
		return err
	}
	defer s.Close(parent)

	updated := 0
	stop := s.WatchImages(func(session.View) { updated++ })

	ctx, cancel := context.WithTimeout(parent, opts.Wait)
	defer cancel()
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		stop()
		return WrapExitError(ExitCommandError, "sync failed", err)
	}
	stop()

	res := syncResult{Images: s.Images.Len(), Updated: updated, Sync: s.Sync.Stats()}
	return opts.Formatter(cmd).SuccessText(res, func(w io.Writer) {
		fmt.Fprintf(w, "%d responses, %d image updates applied, %d images known.\n",
			res.Sync.Applied, res.Updated, res.Images)
	})
}
