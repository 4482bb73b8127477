package vndb

import (
	"encoding/json"
	"fmt"
)

// Results is a decoded result set. Num is the server-side total and may
// exceed len(Items): the API caps how many items one response carries.
type Results[T any] struct {
	Num   int  `json:"num"`
	More  bool `json:"more"`
	Items []T  `json:"items"`
}

// Record is implemented by every entity kind so callers can render a
// candidate list without knowing which kind they hold.
type Record interface {
	Label() string
	OriginalName() string
}

// VN is a visual novel record. Fields outside the requested field groups
// stay at their zero values.
type VN struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Original    string     `json:"original"`
	Released    string     `json:"released"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	ImageNSFW   bool       `json:"image_nsfw"`
	Tags        []VNTag    `json:"tags"`
	Relations   []Relation `json:"relations"`
}

func (v VN) Label() string        { return v.Title }
func (v VN) OriginalName() string { return v.Original }

// VNTag is one tag vote on a VN. The wire form is a bare [id, score,
// spoiler] array rather than an object.
type VNTag struct {
	ID      int
	Score   float64
	Spoiler int
}

func (t *VNTag) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 3 {
		return fmt.Errorf("tag entry has %d fields, want 3", len(raw))
	}
	t.ID = int(raw[0])
	t.Score = raw[1]
	t.Spoiler = int(raw[2])
	return nil
}

// Relation links a VN to a related title.
type Relation struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Original string `json:"original"`
	Relation string `json:"relation"`
	Official bool   `json:"official"`
}

// Character is a character record.
type Character struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Original    string `json:"original"`
	Gender      string `json:"gender"`
	BloodType   string `json:"bloodt"`
	Aliases     string `json:"aliases"`
	Description string `json:"description"`
	Image       string `json:"image"`

	// meas field group
	Height int `json:"height"`
	Weight int `json:"weight"`
	Bust   int `json:"bust"`
	Waist  int `json:"waist"`
	Hip    int `json:"hip"`

	Traits []CharTrait   `json:"traits"`
	VNs    []CharacterVN `json:"vns"`
	Voiced []VoiceCredit `json:"voiced"`
}

func (c Character) Label() string        { return c.Name }
func (c Character) OriginalName() string { return c.Original }

// CharTrait is one trait on a character, wire form [id, spoiler].
type CharTrait struct {
	ID      int
	Spoiler int
}

func (t *CharTrait) UnmarshalJSON(data []byte) error {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("trait entry has %d fields, want 2", len(raw))
	}
	t.ID = raw[0]
	t.Spoiler = raw[1]
	return nil
}

// CharacterVN is one appearance of a character, wire form
// [vnid, releaseid, spoiler, role].
type CharacterVN struct {
	VN      int
	Release int
	Spoiler int
	Role    string
}

func (v *CharacterVN) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 4 {
		return fmt.Errorf("vns entry has %d fields, want 4", len(raw))
	}
	if err := json.Unmarshal(raw[0], &v.VN); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &v.Release); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[2], &v.Spoiler); err != nil {
		return err
	}
	return json.Unmarshal(raw[3], &v.Role)
}

// VoiceCredit is one voice-acting credit on a character. The staff id
// identifies the performer; the alias id picks which of their names was
// credited.
type VoiceCredit struct {
	ID      int    `json:"id"`
	AliasID int    `json:"aid"`
	VN      int    `json:"vid"`
	Note    string `json:"note"`
}

// Staff is a staff record.
type Staff struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	Original string       `json:"original"`
	Aliases  []StaffAlias `json:"aliases"`
}

func (s Staff) Label() string        { return s.Name }
func (s Staff) OriginalName() string { return s.Original }

// StaffAlias is one name a staff member is credited under, wire form
// [aid, name, original]. Original may be null on the wire.
type StaffAlias struct {
	ID       int
	Name     string
	Original string
}

func (a *StaffAlias) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 3 {
		return fmt.Errorf("alias entry has %d fields, want 3", len(raw))
	}
	if err := json.Unmarshal(raw[0], &a.ID); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &a.Name); err != nil {
		return err
	}
	return json.Unmarshal(raw[2], &a.Original)
}

// Stats is the dbstats payload. Only the counters the bot uses are decoded.
type Stats struct {
	VN       int `json:"vn"`
	Chars    int `json:"chars"`
	Staff    int `json:"staff"`
	Tags     int `json:"tags"`
	Traits   int `json:"traits"`
	Releases int `json:"releases"`
}
