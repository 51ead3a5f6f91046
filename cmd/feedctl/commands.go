package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"photo-feed/internal/feedclient"

	"github.com/spf13/cobra"
)

type cli struct {
	server string
	out    io.Writer
}

func (c *cli) cache(pageSize int) (*feedclient.Cache, error) {
	return feedclient.NewCache(feedclient.NewClient(c.server, nil), feedclient.Options{
		PageSize: pageSize,
		Notifier: feedclient.NotifierFunc(func(n feedclient.Notice) {
			fmt.Fprintf(c.out, "[%s] %s\n", n.Level, n.Message)
		}),
	})
}

func NewRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "feedctl",
		Short:         "Browse and post to a photo feed server",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.out = cmd.OutOrStdout()
		},
	}
	root.PersistentFlags().StringVarP(&c.server, "server", "s", "http://localhost:8080", "Feed server base URL")

	root.AddCommand(newListCommand(c), newUploadCommand(c), newCommentCommand(c))
	return root
}

func newListCommand(c *cli) *cobra.Command {
	var (
		sortBy string
		order  string
		pages  int
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the feed, newest first by default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := c.cache(limit)
			if err != nil {
				return err
			}
			key := feedclient.QueryKey{SortBy: sortBy, Order: order}
			for i := 0; i < pages; i++ {
				more, err := cache.FetchNextPage(cmd.Context(), key)
				if err != nil {
					return err
				}
				if !more {
					break
				}
			}

			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSIZE\tCOMMENTS\tCREATED")
			for _, page := range cache.Pages(key) {
				for _, p := range page.Data {
					title := ""
					if p.Title != nil {
						title = *p.Title
					}
					size := "-"
					if p.Width != nil && p.Height != nil {
						size = fmt.Sprintf("%dx%d", *p.Width, *p.Height)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, title, size, p.CommentCount, p.CreatedAt.Format("2006-01-02 15:04"))
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if cache.HasNextPage(key) {
				fmt.Fprintln(c.out, "(more available, raise --pages)")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "createdAt", "Sort key: createdAt or commentCount")
	cmd.Flags().StringVar(&order, "order", "desc", "Sort order: asc or desc")
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to load")
	cmd.Flags().IntVar(&limit, "limit", feedclient.DefaultPageSize, "Photos per page")
	return cmd
}

func newUploadCommand(c *cli) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cache, err := c.cache(0)
			if err != nil {
				return err
			}
			contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(args[0])))
			photo, err := cache.UploadPhoto(cmd.Context(), feedclient.Upload{
				Filename:    filepath.Base(args[0]),
				ContentType: contentType,
				Data:        data,
				Title:       title,
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s\n%s\n%s\n", photo.ID, photo.ImageURL, photo.ThumbnailURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Photo title (defaults to the file name)")
	cmd.Flags().StringVar(&description, "description", "", "Photo description")
	return cmd
}

func newCommentCommand(c *cli) *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "comment PHOTO_ID CONTENT",
		Short: "Add a comment to a photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := c.cache(0)
			if err != nil {
				return err
			}
			comment, err := cache.AddComment(cmd.Context(), args[0], args[1], author)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s by %s\n", comment.ID, comment.AuthorName)
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "Display name (defaults to Anonymous)")
	return cmd
}
