package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-blog-rest/internal/client"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
)

// tokenEnv is read when --token is not given
const tokenEnv = "BLOG_ACCESS_TOKEN"

var clientCMD = &cobra.Command{
	Use:   "client",
	Short: "call the blog api",
	Long: `Call a running blog api.

Mutations need an access token, pass it with --token or ` + tokenEnv + `.
login and register print a token.

Example usage:
  go run main.go client login --email a@example.com --password secret
  go run main.go client create --token <token> --title hello --content-file post.md`,
	Args: gcmd.NoExtraArgs,
}

// newClientFromFlags builds the api client from the persistent client flags
func newClientFromFlags(cmd *cobra.Command) (*client.Client, error) {
	endpoint, err := cmd.Flags().GetString("endpoint")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	token, err := cmd.Flags().GetString("token")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if token == "" {
		token = os.Getenv(tokenEnv)
	}

	return client.New(endpoint, client.WithTimeout(timeout), client.WithToken(token))
}

// printJSON writes v to the command output
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal output")
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return errors.WithStack(err)
}

// postFormFromFlags reads the editor form of create and update
func postFormFromFlags(cmd *cobra.Command) (*client.PostForm, error) {
	form := new(client.PostForm)
	var err error
	if form.Title, err = cmd.Flags().GetString("title"); err != nil {
		return nil, errors.WithStack(err)
	}
	if form.Content, err = cmd.Flags().GetString("content"); err != nil {
		return nil, errors.WithStack(err)
	}
	if form.Image, err = cmd.Flags().GetString("image"); err != nil {
		return nil, errors.WithStack(err)
	}

	contentFile, err := cmd.Flags().GetString("content-file")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if contentFile != "" {
		raw, err := readFileOrStdin(cmd, contentFile)
		if err != nil {
			return nil, errors.Wrap(err, "read content file")
		}
		form.Content = string(raw)
	}

	imageFile, err := cmd.Flags().GetString("image-file")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if imageFile != "" {
		if form.ImageData, err = os.ReadFile(imageFile); err != nil {
			return nil, errors.Wrap(err, "read image file")
		}
	}

	return form, nil
}

// readFileOrStdin reads path, `-` means stdin
func readFileOrStdin(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}

	return os.ReadFile(path)
}

func addPostFormFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "post title")
	cmd.Flags().String("content", "", "post content, markdown")
	cmd.Flags().String("content-file", "", "read content from file, `-` for stdin")
	cmd.Flags().String("image", "", "image url or data url")
	cmd.Flags().String("image-file", "", "image file, sent as data url")
}

// runClient runs fn with a client and a timeout bound context, printing its result
func runClient(fn func(ctx context.Context, c *client.Client, cmd *cobra.Command, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newClientFromFlags(cmd)
		if err != nil {
			return errors.Wrap(err, "new client")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, client.DefaultTimeout+5*time.Second)
		defer cancel()

		ret, err := fn(ctx, c, cmd, args)
		if err != nil {
			return err
		}

		return printJSON(cmd, ret)
	}
}

var clientLoginCMD = &cobra.Command{
	Use:   "login",
	Short: "login and print the access token",
	Args:  gcmd.NoExtraArgs,
	RunE: runClient(func(ctx context.Context, c *client.Client, cmd *cobra.Command, _ []string) (any, error) {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		return c.Login(ctx, email, password)
	}),
}

var clientRegisterCMD = &cobra.Command{
	Use:   "register",
	Short: "create an account and print the access token",
	Args:  gcmd.NoExtraArgs,
	RunE: runClient(func(ctx context.Context, c *client.Client, cmd *cobra.Command, _ []string) (any, error) {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		name, _ := cmd.Flags().GetString("name")
		return c.Register(ctx, email, password, name)
	}),
}

var clientListCMD = &cobra.Command{
	Use:   "list",
	Short: "list posts",
	Args:  gcmd.NoExtraArgs,
	RunE: runClient(func(ctx context.Context, c *client.Client, cmd *cobra.Command, _ []string) (any, error) {
		var q client.ListQuery
		q.AuthorID, _ = cmd.Flags().GetString("author")
		q.Page, _ = cmd.Flags().GetInt("page")
		q.Limit, _ = cmd.Flags().GetInt("limit")
		q.Desc, _ = cmd.Flags().GetBool("desc")

		page, err := c.ListPosts(ctx, q)
		if err != nil {
			return nil, err
		}

		return map[string]any{"total": page.Total, "posts": page.Posts}, nil
	}),
}

var clientGetCMD = &cobra.Command{
	Use:   "get <id>",
	Short: "print one post",
	Args:  cobra.ExactArgs(1),
	RunE: runClient(func(ctx context.Context, c *client.Client, _ *cobra.Command, args []string) (any, error) {
		return c.GetPost(ctx, args[0])
	}),
}

var clientCreateCMD = &cobra.Command{
	Use:   "create",
	Short: "create a post owned by the token user",
	Args:  gcmd.NoExtraArgs,
	RunE: runClient(func(ctx context.Context, c *client.Client, cmd *cobra.Command, _ []string) (any, error) {
		form, err := postFormFromFlags(cmd)
		if err != nil {
			return nil, err
		}

		return c.CreatePost(ctx, form)
	}),
}

var clientUpdateCMD = &cobra.Command{
	Use:   "update <id>",
	Short: "replace the title, content and image of a post",
	Args:  cobra.ExactArgs(1),
	RunE: runClient(func(ctx context.Context, c *client.Client, cmd *cobra.Command, args []string) (any, error) {
		form, err := postFormFromFlags(cmd)
		if err != nil {
			return nil, err
		}

		return c.UpdatePost(ctx, args[0], form)
	}),
}

var clientPatchCMD = &cobra.Command{
	Use:   "patch <id>",
	Short: "change only the given fields of a post",
	Args:  cobra.ExactArgs(1),
	RunE: runClient(func(ctx context.Context, c *client.Client, cmd *cobra.Command, args []string) (any, error) {
		patch := new(model.PostPatch)
		for flag, field := range map[string]**string{
			"title":   &patch.Title,
			"content": &patch.Content,
			"image":   &patch.Image,
		} {
			if !cmd.Flags().Changed(flag) {
				continue
			}

			v, _ := cmd.Flags().GetString(flag)
			*field = &v
		}

		return c.PatchPost(ctx, args[0], patch)
	}),
}

var clientDeleteCMD = &cobra.Command{
	Use:   "delete <id>",
	Short: "delete a post",
	Args:  cobra.ExactArgs(1),
	RunE: runClient(func(ctx context.Context, c *client.Client, _ *cobra.Command, args []string) (any, error) {
		msg, err := c.DeletePost(ctx, args[0])
		if err != nil {
			return nil, err
		}

		return map[string]string{"message": msg}, nil
	}),
}

func init() {
	rootCMD.AddCommand(clientCMD)
	clientCMD.PersistentFlags().String("endpoint", "http://localhost:3000", "blog api endpoint")
	clientCMD.PersistentFlags().String("token", "", "access token, defaults to $"+tokenEnv)
	clientCMD.PersistentFlags().Duration("timeout", client.DefaultTimeout, "request timeout")

	for _, cmd := range []*cobra.Command{clientLoginCMD, clientRegisterCMD} {
		cmd.Flags().String("email", "", "account email")
		cmd.Flags().String("password", "", "account password")
	}
	clientRegisterCMD.Flags().String("name", "", "display name")

	clientListCMD.Flags().String("author", "", "only posts of this author id")
	clientListCMD.Flags().Int("page", 0, "1-based page")
	clientListCMD.Flags().Int("limit", 0, "page size")
	clientListCMD.Flags().Bool("desc", false, "newest first")

	addPostFormFlags(clientCreateCMD)
	addPostFormFlags(clientUpdateCMD)
	clientPatchCMD.Flags().String("title", "", "new title")
	clientPatchCMD.Flags().String("content", "", "new content")
	clientPatchCMD.Flags().String("image", "", "new image url or data url")

	clientCMD.AddCommand(
		clientLoginCMD,
		clientRegisterCMD,
		clientListCMD,
		clientGetCMD,
		clientCreateCMD,
		clientUpdateCMD,
		clientPatchCMD,
		clientDeleteCMD,
	)
}
