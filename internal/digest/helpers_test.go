package digest

import (
	"time"

	"github.com/ppiankov/wiresync/internal/store"
	"github.com/ppiankov/wiresync/internal/types"
)

var testPublished = time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC)

func makeItem(guid string, urgency int, headline string) store.StoredItem {
	return store.StoredItem{
		Item: types.Item{
			GUID:           guid,
			Version:        1,
			ItemClass:      "text",
			PubStatus:      "usable",
			Urgency:        urgency,
			Headline:       headline,
			VersionCreated: testPublished,
		},
		Source:     "reuters",
		InsertedAt: testPublished.Add(time.Minute),
		UpdatedAt:  testPublished.Add(time.Minute),
	}
}

func sampleInput() DigestInput {
	flash := makeItem("tag:reuters.com,2024:newsml_L1N3", 1, "Central bank raises rates")
	flash.Byline = "Jane Doe"
	flash.BodyText = "The central bank raised its key rate by 50 basis points.\n\nMarkets fell."
	flash.BodyHTML = "<p>The central bank raised its key rate by 50 basis points.</p><p>Markets fell.</p>"

	picture := makeItem("tag:reuters.com,2024:newsml_P1", 5, "")
	picture.ItemClass = "picture"
	picture.Slugline = "RATES-PHOTO"
	picture.Renditions = []types.Rendition{{Name: "baseImage", Href: "https://pictures.example.com/p1.jpg"}}

	killed := makeItem("tag:reuters.com,2024:newsml_K1", 2, "Withdrawn story")
	killed.PubStatus = "canceled"

	return DigestInput{
		Provider:  "reuters",
		Items:     []store.StoredItem{picture, killed, flash},
		Total:     42,
		Since:     24 * time.Hour,
		Watermark: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}
