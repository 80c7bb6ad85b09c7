package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"charchat-client/internal/models"
	"charchat-client/internal/notifications"
	"charchat-client/internal/pushbridge"
	"charchat-client/internal/session"
)

var errSessionEnded = errors.New("session ended")

func (a *app) notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read notifications",
	}
	cmd.AddCommand(a.notificationsListCmd(), a.notificationsReadCmd(), a.notificationsReadAllCmd(),
		a.notificationsDeleteCmd(), a.notificationsWatchCmd())
	return cmd
}

func (a *app) notificationsListCmd() *cobra.Command {
	var params models.ListParams
	var unreadOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			page, err := a.svcs.Notifications.List(ctx, params, unreadOnly)
			if err != nil {
				return err
			}
			unread, err := a.svcs.Notifications.UnreadCount(ctx)
			if err != nil {
				return err
			}
			return a.render(page, func(w io.Writer) {
				fmt.Fprintln(w, " \tID\tDATE\tTYPE\tTITLE\tBODY")
				for _, n := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", readMark(n), n.ID, shortTime(n.CreatedAt),
						n.Type, n.Title, truncate(n.Body, 48))
				}
				pageFooter(w, page.Page, page.Total, page.HasMore)
				fmt.Fprintf(w, "%d unread\n", unread)
			})
		},
	}
	listFlags(cmd, &params)
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread notifications")
	return cmd
}

func (a *app) notificationsReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			ch := a.notificationChannel()
			defer ch.Close()
			if err := ch.MarkAsRead(ctx, args[0]); err != nil {
				return err
			}
			a.printf("Marked as read\n")
			return nil
		},
	}
}

func (a *app) notificationsReadAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			ch := a.notificationChannel()
			defer ch.Close()
			if err := ch.MarkAllAsRead(ctx); err != nil {
				return err
			}
			a.printf("All notifications marked as read\n")
			return nil
		},
	}
}

func (a *app) notificationsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			if err := a.svcs.Notifications.Delete(ctx, args[0]); err != nil {
				return err
			}
			a.printf("Deleted\n")
			return nil
		},
	}
}

func (a *app) notificationsWatchCmd() *cobra.Command {
	var (
		forward  bool
		amqpURL  string
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream notifications in real time",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			ch := a.notificationChannel()
			defer ch.Close()

			unsubscribe := ch.Subscribe(a.printEvent)
			defer unsubscribe()
			unbind := ch.BindSession(a.sess)
			defer unbind()

			ended := make(chan struct{})
			var once sync.Once
			stopSession := a.sess.Subscribe(func(ev session.Event) {
				if ev.Type == session.EventLoggedOut {
					once.Do(func() { close(ended) })
				}
			})
			defer stopSession()

			if forward {
				url := amqpURL
				if url == "" {
					url = a.cfg.PushBridge.AMQPURL
				}
				if url == "" {
					return errors.New("no AMQP URL, set --amqp-url or CHARCHAT_AMQP_URL")
				}
				pub, err := pushbridge.Dial(url, a.cfg.PushBridge.Exchange, a.logger)
				if err != nil {
					return err
				}
				defer pub.Close()
				stopForward := pushbridge.Forward(ch, pub, a.logger)
				defer stopForward()
			}

			// Restore публикует LoggedIn, после чего канал подключается сам
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			a.printf("Watching notifications for %s, press Ctrl+C to stop\n", user.Username)

			select {
			case <-ctx.Done():
				return nil
			case <-ended:
				return errSessionEnded
			}
		},
	}
	cmd.Flags().BoolVar(&forward, "forward-amqp", false, "republish new notifications to RabbitMQ")
	cmd.Flags().StringVar(&amqpURL, "amqp-url", "", "RabbitMQ URL (default from config)")
	cmd.Flags().DurationVar(&duration, "for", 0, "stop after this long (0 = until interrupted)")
	return cmd
}

func (a *app) printEvent(ev notifications.Event) {
	switch ev.Type {
	case notifications.EventStatus:
		a.printf("[%s]\n", ev.Status)
	case notifications.EventUnreadCount:
		a.printf("unread: %d\n", ev.UnreadCount)
	case notifications.EventNotification:
		if n := ev.Notification; n != nil {
			a.printf("%s %s: %s\n", n.Type, n.Title, n.Body)
		}
	}
}
