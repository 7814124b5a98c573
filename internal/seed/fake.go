package seed

import (
	"time"

	"socialconnect/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Fake generates Count posts from a fixed seed, so the same seed always
// yields the same dataset. Posts are spaced an hour apart ending at Until,
// newest first. A zero Seed lets gofakeit pick a random one.
type Fake struct {
	Count int
	Seed  int64
	Until time.Time
}

func (f Fake) Posts() models.Feed {
	faker := gofakeit.New(f.Seed)
	until := f.Until
	if until.IsZero() {
		until = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}

	authors := make([]models.User, 0, 5)
	for i := 0; i < 5; i++ {
		first, last := faker.FirstName(), faker.LastName()
		authors = append(authors, models.User{
			ID:          "seed-user-" + faker.UUID(),
			DisplayName: first + " " + last,
			Email:       faker.Email(),
			AvatarURL:   faker.ImageURL(150, 150),
			IsOnline:    faker.Bool(),
		})
	}
	pick := func() models.User { return authors[faker.Number(0, len(authors)-1)] }

	posts := make(models.Feed, 0, f.Count)
	for i := 0; i < f.Count; i++ {
		created := until.Add(-time.Duration(i) * time.Hour)
		p := models.Post{
			ID:         "seed-post-" + faker.UUID(),
			Author:     pick(),
			Content:    faker.Sentence(faker.Number(6, 18)),
			CreatedAt:  created,
			LikeCount:  faker.Number(0, 50),
			ShareCount: faker.Number(0, 10),
			Comments:   []models.Comment{},
		}
		if faker.Bool() {
			p.Image = faker.ImageURL(800, 600)
		}
		for j, n := 0, faker.Number(0, 3); j < n; j++ {
			p.Comments = append(p.Comments, models.Comment{
				ID:        "seed-comment-" + faker.UUID(),
				Author:    pick(),
				Content:   faker.Sentence(faker.Number(3, 10)),
				CreatedAt: created.Add(time.Duration(j+1) * 5 * time.Minute),
				LikeCount: faker.Number(0, 5),
			})
		}
		posts = append(posts, p)
	}
	return posts
}
