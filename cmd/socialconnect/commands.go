package main

import (
	"fmt"
	"strings"
	"time"

	"socialconnect/internal/auth"
	"socialconnect/internal/util"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

// ----------------------------
// Session
// ----------------------------

func newLoginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Sign in as the given email (simulated; any password works)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task, err := application.Session.Login(ctx, args[0], password)
			if err != nil {
				return err
			}
			if err := task.Wait(ctx); err != nil {
				return err
			}
			if err := application.WaitFeed(ctx); err != nil {
				return err
			}
			u, _ := application.Session.CurrentUser()
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s!\n", u.DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (not checked)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			if err := application.Session.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, ok := application.Session.CurrentUser()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			return util.RenderUser(cmd.OutOrStdout(), u)
		},
	}
}

func newProfileCmd() *cobra.Command {
	var (
		name, avatar string
		online       bool
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Change the display name, avatar or online status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			var p auth.ProfileUpdate
			if cmd.Flags().Changed("name") {
				p.DisplayName = &name
			}
			if cmd.Flags().Changed("avatar") {
				p.AvatarURL = &avatar
			}
			if cmd.Flags().Changed("online") {
				p.IsOnline = &online
			}
			ctx, cancel := opContext(cmd)
			defer cancel()
			u, err := application.Session.UpdateProfile(ctx, p)
			if err != nil {
				return err
			}
			if err := application.WaitFeed(ctx); err != nil {
				return err
			}
			return util.RenderUser(cmd.OutOrStdout(), u)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&avatar, "avatar", "", "Avatar URL")
	cmd.Flags().BoolVar(&online, "online", true, "Online status")
	return cmd
}

// ----------------------------
// Feed
// ----------------------------

func newFeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Show the feed, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return util.RenderFeed(cmd.OutOrStdout(), application.Feed.Posts(), time.Now())
		},
	}
}

func newPostCmd() *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "post [content...]",
		Short: "Publish a post",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()
			p, err := application.Feed.CreatePost(ctx, strings.Join(args, " "), image)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted %s\n", p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "Image URL")
	return cmd
}

// postAction builds a command that takes a post id and runs one feed mutation.
func postAction(use, short, done string, fn func(cmd *cobra.Command, postID string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [post-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if err := fn(cmd, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, args[0])
			return nil
		},
	}
}

func newLikeCmd() *cobra.Command {
	return postAction("like", "Like or unlike a post", "Toggled like on", func(cmd *cobra.Command, id string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()
		return application.Feed.LikePost(ctx, id)
	})
}

func newShareCmd() *cobra.Command {
	return postAction("share", "Share a post", "Shared", func(cmd *cobra.Command, id string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()
		return application.Feed.SharePost(ctx, id)
	})
}

func newDeleteCmd() *cobra.Command {
	return postAction("delete", "Delete one of your posts", "Deleted", func(cmd *cobra.Command, id string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()
		return application.Feed.DeletePost(ctx, id)
	})
}

func newCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment [post-id] [content...]",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()
			c, err := application.Feed.CommentOnPost(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Commented %s\n", c.ID)
			return nil
		},
	}
}

func newLikeCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like-comment [post-id] [comment-id]",
		Short: "Like or unlike a comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()
			if err := application.Feed.LikeComment(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Toggled like on %s\n", args[1])
			return nil
		},
	}
}

// ----------------------------
// Storage
// ----------------------------

func newStorageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "storage",
		Short: "Show how much of the storage capacity is used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			u, err := application.Repo.StorageUsage(ctx)
			if err != nil {
				return err
			}
			return util.RenderUsage(cmd.OutOrStdout(), u)
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved user and every post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			if err := application.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All data cleared.")
			return nil
		},
	}
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print this run's repository metrics in Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			if _, err := application.Repo.StorageUsage(ctx); err != nil {
				return err
			}
			families, err := application.Registry.Gather()
			if err != nil {
				return err
			}
			for _, mf := range families {
				if _, err := expfmt.MetricFamilyToText(cmd.OutOrStdout(), mf); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
