package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-suite/internal/domain/post"
)

var blogCmd = &cobra.Command{
	Use:   "blog",
	Short: "Manage blog posts",
}

var blogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAppContext(cmd).Container(commandContext(cmd))
		if err != nil {
			return err
		}
		posts, err := c.BlogService.List(commandContext(cmd))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			views := make([]postView, 0, len(posts))
			for _, p := range posts {
				views = append(views, newPostView(p))
			}
			return encodeJSON(out, views)
		}
		if len(posts) == 0 {
			fmt.Fprintf(out, "%s posts yet\n", colorWarn("No"))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tREAD TIME\tAUTHOR\tUPDATED")
		for _, p := range posts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				p.ID(), p.Title(), p.Category(), p.ReadTime(), p.Author(), p.UpdatedAt().Local().Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var blogShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAppContext(cmd).Container(commandContext(cmd))
		if err != nil {
			return err
		}
		p, err := c.BlogService.Get(commandContext(cmd), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return encodeJSON(out, newPostView(p))
		}
		fmt.Fprintf(out, "%s\n", colorInfo(p.Title()))
		fmt.Fprintf(out, "%s | %s | by %s | %s\n\n", p.Category(), p.ReadTime(), p.Author(), p.CreatedAt().Local().Format("January 2, 2006"))
		fmt.Fprintf(out, "%s\n\n%s\n", p.Excerpt(), p.Body())
		return nil
	},
}

var blogCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a post (requires an admin session)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAppContext(cmd).Container(commandContext(cmd))
		if err != nil {
			return err
		}
		actor, err := currentSession(cmd, c, "blog create")
		if err != nil {
			return err
		}

		content, err := contentFromFlags(cmd, post.Content{})
		if err != nil {
			return err
		}
		p, err := c.BlogService.Create(commandContext(cmd), actor, content)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Created post %s\n", colorSuccess("✓"), p.ID())
		return nil
	},
}

var blogUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a post; unset flags keep their current value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAppContext(cmd).Container(commandContext(cmd))
		if err != nil {
			return err
		}
		actor, err := currentSession(cmd, c, "blog update")
		if err != nil {
			return err
		}

		existing, err := c.BlogService.Get(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		content, err := contentFromFlags(cmd, existing.Content())
		if err != nil {
			return err
		}
		p, err := c.BlogService.Update(commandContext(cmd), actor, args[0], content)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Updated post %s\n", colorSuccess("✓"), p.ID())
		return nil
	},
}

var blogDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a post (requires an admin session)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAppContext(cmd).Container(commandContext(cmd))
		if err != nil {
			return err
		}
		actor, err := currentSession(cmd, c, "blog delete")
		if err != nil {
			return err
		}
		if err := c.BlogService.Delete(commandContext(cmd), actor, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted post %s\n", colorSuccess("✓"), args[0])
		return nil
	},
}

type postView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	ReadTime  string    `json:"readTime"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newPostView(p *post.Post) postView {
	return postView{
		ID:        p.ID(),
		Title:     p.Title(),
		Excerpt:   p.Excerpt(),
		Content:   p.Body(),
		Category:  p.Category(),
		ReadTime:  p.ReadTime(),
		Author:    p.Author(),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
}

// contentFromFlags overlays the changed flags on base. --content-file wins
// over --content.
func contentFromFlags(cmd *cobra.Command, base post.Content) (post.Content, error) {
	flags := cmd.Flags()
	fields := []struct {
		name string
		dst  *string
	}{
		{"title", &base.Title},
		{"excerpt", &base.Excerpt},
		{"content", &base.Body},
		{"category", &base.Category},
		{"read-time", &base.ReadTime},
	}
	for _, field := range fields {
		if flags.Changed(field.name) {
			*field.dst, _ = flags.GetString(field.name)
		}
	}

	if path, _ := flags.GetString("content-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return base, fmt.Errorf("failed to read content file: %w", err)
		}
		base.Body = string(data)
	}
	return base, nil
}

func encodeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{blogCreateCmd, blogUpdateCmd} {
		c.Flags().String("title", "", "Post title")
		c.Flags().String("excerpt", "", "Short summary")
		c.Flags().String("content", "", "Post body")
		c.Flags().String("content-file", "", "Read the post body from a file")
		c.Flags().String("category", "", "Category label")
		c.Flags().String("read-time", "", `Read time label, e.g. "5 min read"`)
	}
	blogListCmd.Flags().Bool("json", false, "Print posts as JSON")
	blogShowCmd.Flags().Bool("json", false, "Print the post as JSON")

	blogCmd.AddCommand(blogListCmd)
	blogCmd.AddCommand(blogShowCmd)
	blogCmd.AddCommand(blogCreateCmd)
	blogCmd.AddCommand(blogUpdateCmd)
	blogCmd.AddCommand(blogDeleteCmd)
}
