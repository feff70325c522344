// Package types holds the domain records shared by the fetcher, parser,
// orchestrator and store.
package types

import "time"

// Item is one parsed news item. Apart from Groups the core treats it as an
// opaque payload.
type Item struct {
	GUID           string
	Version        int
	ItemClass      string // e.g. "text", "picture", "composite"
	Provider       string
	PubStatus      string
	Urgency        int
	Headline       string
	Slugline       string
	Byline         string
	Language       string
	FirstCreated   time.Time
	VersionCreated time.Time
	BodyHTML       string
	BodyText       string
	Renditions     []Rendition
	Groups         []Group
}

// Group is an ordered set of references inside a package item.
type Group struct {
	ID   string
	Role string
	Refs []Ref
}

// Ref points either to another group in the same item (IDRef) or to a
// separately fetchable item (ResidRef).
type Ref struct {
	IDRef     string
	ResidRef  string
	Version   int
	ItemClass string
	Headline  string
}

// HasResidRef reports whether the reference names a remote item.
func (r Ref) HasResidRef() bool {
	return r.ResidRef != ""
}

// Rendition is one remote content variant of an item (e.g. a picture size).
type Rendition struct {
	Name        string
	Href        string
	ContentType string
	Size        int64
	Width       int
	Height      int
}

// ResidRefs returns the remote guids referenced by the item in group order.
func (it Item) ResidRefs() []string {
	var refs []string
	for _, g := range it.Groups {
		for _, r := range g.Refs {
			if r.HasResidRef() {
				refs = append(refs, r.ResidRef)
			}
		}
	}
	return refs
}

// Provider is the persisted per-source sync record.
type Provider struct {
	ID         int64
	Name       string
	Updated    time.Time // zero when never synced
	LeaseOwner string
	LeaseUntil time.Time
}

// HasUpdated reports whether a watermark has been stored.
func (p Provider) HasUpdated() bool {
	return !p.Updated.IsZero()
}
