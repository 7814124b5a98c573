package models

// Feed is an ordered post collection, newest first. The repository applies
// these transforms to the stored collection and the feed manager applies the
// same ones to its cache, so both sides stay equivalent.
type Feed []Post

func toggle(liked bool, count int) (bool, int) {
	liked = !liked
	if liked {
		return liked, count + 1
	}
	// Clamp: a record that says "liked" with a zero count must not go negative.
	if count > 0 {
		count--
	}
	return liked, count
}

func (p *Post) ToggleLike() {
	p.IsLikedByCurrentUser, p.LikeCount = toggle(p.IsLikedByCurrentUser, p.LikeCount)
}

func (c *Comment) ToggleLike() {
	c.IsLikedByCurrentUser, c.LikeCount = toggle(c.IsLikedByCurrentUser, c.LikeCount)
}

func (p *Post) Share() { p.ShareCount++ }

func (p *Post) AddComment(c Comment) {
	p.Comments = append(p.Comments, c)
}

// UpdateComment applies fn to the comment with the given id.
// It reports whether the comment was found.
func (p *Post) UpdateComment(commentID string, fn func(*Comment)) bool {
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			fn(&p.Comments[i])
			return true
		}
	}
	return false
}

func (p *Post) FindComment(commentID string) (Comment, bool) {
	for _, c := range p.Comments {
		if c.ID == commentID {
			return c, true
		}
	}
	return Comment{}, false
}

// Clone returns a deep copy so callers can't mutate a shared comment slice.
func (p Post) Clone() Post {
	if p.Comments != nil {
		p.Comments = append(make([]Comment, 0, len(p.Comments)), p.Comments...)
	}
	return p
}

func (f Feed) Clone() Feed {
	if f == nil {
		return nil
	}
	out := make(Feed, len(f))
	for i, p := range f {
		out[i] = p.Clone()
	}
	return out
}

// Prepend returns a new feed with p in front.
func (f Feed) Prepend(p Post) Feed {
	out := make(Feed, 0, len(f)+1)
	out = append(out, p)
	return append(out, f...)
}

// Delete returns the feed without the post with the given id.
// The second result is false when no post matched.
func (f Feed) Delete(postID string) (Feed, bool) {
	out := make(Feed, 0, len(f))
	found := false
	for _, p := range f {
		if p.ID == postID {
			found = true
			continue
		}
		out = append(out, p)
	}
	return out, found
}

// Update applies fn to the post with the given id in place.
func (f Feed) Update(postID string, fn func(*Post)) bool {
	for i := range f {
		if f[i].ID == postID {
			fn(&f[i])
			return true
		}
	}
	return false
}

func (f Feed) Find(postID string) (Post, bool) {
	for _, p := range f {
		if p.ID == postID {
			return p, true
		}
	}
	return Post{}, false
}
