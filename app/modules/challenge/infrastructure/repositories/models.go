package challengedb

import (
	"time"

	scoringdomain "github.com/Black-And-White-Club/promptduel/app/modules/scoring/domain"
	"github.com/uptrace/bun"
)

// Challenge is a reference image participants try to reproduce. Rows are
// written once by the seeder and never updated.
type Challenge struct {
	bun.BaseModel `bun:"table:challenges,alias:c"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	ImageURL      string    `bun:"image_url,notnull" json:"image_url"`
	Prompt        string    `bun:"prompt,notnull" json:"prompt"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// ToDomain returns the view the scorer needs.
func (c *Challenge) ToDomain() scoringdomain.Challenge {
	return scoringdomain.Challenge{
		ID:                    c.ID,
		ReferenceImageLocator: c.ImageURL,
		ReferencePrompt:       c.Prompt,
	}
}

// DefaultChallenges are the six contest rounds.
var DefaultChallenges = []Challenge{
	{ID: 1, ImageURL: "/images/1.png", Prompt: "A majestic dragon flying over a medieval castle at sunset"},
	{ID: 2, ImageURL: "/images/2.png", Prompt: "A futuristic cityscape with flying cars and neon lights"},
	{ID: 3, ImageURL: "/images/3.png", Prompt: "A serene forest with a magical glowing tree in the center"},
	{ID: 4, ImageURL: "/images/4.png", Prompt: "A steampunk robot playing chess in a Victorian library"},
	{ID: 5, ImageURL: "/images/5.png", Prompt: "A beautiful underwater palace with mermaids and coral gardens"},
	{ID: 6, ImageURL: "/images/6.png", Prompt: "A space station orbiting Earth with astronauts floating outside"},
}
