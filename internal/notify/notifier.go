// Package notify decides between immediate and deferred staff delivery of
// intake reports, and flushes deferred work once the permitted window opens.
package notify

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"intakebot/internal/metrics"
	"intakebot/internal/report"
)

// Builder renders a report from gathered answers.
type Builder interface {
	Build(ctx context.Context, in report.Input) (report.File, error)
}

// DocumentSender delivers a rendered file to a chat.
type DocumentSender interface {
	SendFile(ctx context.Context, chatID int64, f report.File, caption string) error
}

// PendingStore records deliveries postponed to the window.
type PendingStore interface {
	CreatePendingNotification(ctx context.Context, telegramID int64, handle string) error
}

// GroupNotifier ships completed-intake reports to the staff group, deferring
// when the current time is outside the permitted window.
type GroupNotifier struct {
	groupID int64
	window  Window
	builder Builder
	sender  DocumentSender
	pending PendingStore
	now     func() time.Time
}

func NewGroupNotifier(groupID int64, window Window, builder Builder, sender DocumentSender, pending PendingStore) *GroupNotifier {
	return &GroupNotifier{
		groupID: groupID,
		window:  window,
		builder: builder,
		sender:  sender,
		pending: pending,
		now:     time.Now,
	}
}

// NotifyOrDefer builds the report, then either sends it to the group right
// away (window open) or records a PendingNotification for the scheduler. The
// document is always built first; the cost is paid once regardless of branch.
func (n *GroupNotifier) NotifyOrDefer(ctx context.Context, in report.Input) error {
	file, err := n.builder.Build(ctx, in)
	if err != nil {
		return fmt.Errorf("build group report: %w", err)
	}

	now := n.now()
	if n.window.Open(now) {
		return n.send(ctx, file, in)
	}

	handle := in.Handle
	if handle == "" {
		handle = strconv.FormatInt(in.ChatID, 10)
	}
	if err := n.pending.CreatePendingNotification(ctx, in.ChatID, handle); err != nil {
		return fmt.Errorf("defer group notification: %w", err)
	}
	metrics.NotificationsDeferred.Inc()
	log.Printf("notify: deferred delivery for %s, %s outside window %s",
		handle, now.In(n.window.loc).Format("15:04"), n.window)
	return nil
}

func (n *GroupNotifier) send(ctx context.Context, file report.File, in report.Input) error {
	if n.groupID == 0 {
		log.Printf("notify: group chat not configured, dropping report for %d", in.ChatID)
		return nil
	}

	who := strconv.FormatInt(in.ChatID, 10)
	if in.Handle != "" {
		who = "@" + in.Handle
	}

	if err := n.sender.SendFile(ctx, n.groupID, file, "📥 Intake report from "+who); err != nil {
		return fmt.Errorf("send group report: %w", err)
	}
	metrics.NotificationsSent.Inc()
	return nil
}
