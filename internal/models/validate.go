package models

import (
	"errors"
	"fmt"
)

var ErrInvalid = errors.New("invalid record")

func (u User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("%w: user without id", ErrInvalid)
	}
	return nil
}

func (c Comment) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: comment without id", ErrInvalid)
	}
	if err := c.Author.Validate(); err != nil {
		return fmt.Errorf("comment %s author: %w", c.ID, err)
	}
	if c.LikeCount < 0 {
		return fmt.Errorf("%w: comment %s has negative like count", ErrInvalid, c.ID)
	}
	return nil
}

func (p Post) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: post without id", ErrInvalid)
	}
	if err := p.Author.Validate(); err != nil {
		return fmt.Errorf("post %s author: %w", p.ID, err)
	}
	if p.LikeCount < 0 || p.ShareCount < 0 {
		return fmt.Errorf("%w: post %s has negative counter", ErrInvalid, p.ID)
	}
	seen := make(map[string]struct{}, len(p.Comments))
	for _, c := range p.Comments {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("post %s: %w", p.ID, err)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: post %s has duplicate comment id %s", ErrInvalid, p.ID, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// Validate checks every post and that post ids are unique.
func (f Feed) Validate() error {
	seen := make(map[string]struct{}, len(f))
	for _, p := range f {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate post id %s", ErrInvalid, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// ClampCounters raises negative like and share counts to zero. Stores
// written by the browser build can hold them because its unlike never
// stopped at zero.
func (f Feed) ClampCounters() {
	for i := range f {
		p := &f[i]
		p.LikeCount = max(p.LikeCount, 0)
		p.ShareCount = max(p.ShareCount, 0)
		for j := range p.Comments {
			p.Comments[j].LikeCount = max(p.Comments[j].LikeCount, 0)
		}
	}
}
