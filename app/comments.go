package app

import (
	"context"
	"fmt"

	"tracker-api/domain"
)

// Comments lists a task's comments oldest first.
func (s *Service) Comments(ctx context.Context, caller domain.Caller, taskID string) ([]domain.Comment, error) {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task.OrganizationID != caller.OrganizationID {
		return nil, domain.ErrUnauthorized
	}
	comments, err := s.store.CommentsByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// AddComment posts a comment on a task. The task's creator and assignees may
// comment; the comment is pushed live to everyone viewing the task and the
// other participants are notified.
func (s *Service) AddComment(ctx context.Context, caller domain.Caller, taskID, text string) (domain.Comment, error) {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("load task: %w", err)
	}
	if err := domain.AuthorizeComment(caller, task); err != nil {
		return domain.Comment{}, err
	}

	comment := domain.Comment{
		ID:             s.newID(),
		Comment:        text,
		TaskID:         task.ID,
		UserID:         caller.ID,
		OrganizationID: task.OrganizationID,
		CreatedAt:      s.now(),
	}
	saved, err := s.store.CreateComment(ctx, comment)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("persist comment: %w", err)
	}

	s.broadcast.Broadcast(TaskRoom(task.ID), EventCommentAdded, saved)

	drafts := domain.SynthesizeNotifications(domain.TaskChange{
		Task:    task,
		Kind:    domain.MutationCommented,
		ActorID: caller.ID,
	})
	s.deliverNotifications(ctx, drafts)

	return saved, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (s *Service) DeleteComment(ctx context.Context, caller domain.Caller, commentID string) error {
	comment, err := s.store.CommentByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("load comment: %w", err)
	}
	if comment.OrganizationID != caller.OrganizationID {
		return domain.ErrUnauthorized
	}
	if comment.UserID != caller.ID {
		return domain.ErrForbidden
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	s.broadcast.Broadcast(TaskRoom(comment.TaskID), EventCommentDeleted, comment)
	return nil
}
