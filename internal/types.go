package internal

// ObservationSource identifies which recognizer stage produced a piece of text.
type ObservationSource string

const (
	SourceModel   ObservationSource = "model"
	SourceOCR     ObservationSource = "ocr"
	SourceCaption ObservationSource = "caption"
	SourceLabel   ObservationSource = "label"
)

// RawObservation is the unprocessed text from one recognizer call. It lives
// only for the duration of a recognize-and-normalize cycle.
type RawObservation struct {
	Text   string
	Source ObservationSource
}

// UnknownItemName is returned when every recognizer stage fails to produce a
// usable name.
const UnknownItemName = "Unknown"

// MaxItemNameLen bounds CanonicalItemName.Value.
const MaxItemNameLen = 120

type CanonicalItemName struct {
	Value        string
	MatchedBrand string
	MatchedType  string
}

func (c CanonicalItemName) IsEmpty() bool {
	return c.Value == ""
}

// LoggedItem is one item entered against a visit. IngestID is a pure function
// of (VisitID, VolunteerEmail, ItemName, Qty, Timestamp), so resubmitting the
// same logical content collides at the storage layer instead of duplicating.
type LoggedItem struct {
	VisitID        int
	VolunteerEmail string
	ItemName       string
	Qty            int
	Category       *string
	Unit           *string
	Barcode        *string
	Timestamp      string
	IngestID       string
}

// IngestOutcome is the terminal state of one reconciler run.
type IngestOutcome string

const (
	OutcomeValidated      IngestOutcome = "VALIDATED"
	OutcomeFallback       IngestOutcome = "FALLBACK"
	OutcomeLegacyFallback IngestOutcome = "LEGACY_FALLBACK"
	OutcomeFailed         IngestOutcome = "FAILED"
)

// IngestAttempt records one stage of the fallback chain for the operator
// debug trail.
type IngestAttempt struct {
	Stage  string `json:"stage"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

type IngestResult struct {
	Outcome  IngestOutcome   `json:"outcome"`
	Message  string          `json:"message"`
	Attempts []IngestAttempt `json:"attempts"`
}

func (r IngestResult) Succeeded() bool {
	return r.Outcome != OutcomeFailed
}

// ItemTable names which physical shape a persisted row landed in.
type ItemTable string

const (
	TablePreferred ItemTable = "visit_items_p"
	TableLegacy    ItemTable = "visit_items"
)

type VisitRow struct {
	ID        int
	VisitCode string
	StartedAt string
	EndedAt   *string
	CreatedBy string
}

type VolunteerRow struct {
	Email          string
	LastLoginAt    *string
	ShiftStartedAt *string
	ShiftEndedAt   *string
	TotalHours     *float64
}

// ItemRow is the persisted view of a logged item, tagged with the table it
// was read from so deletes can target the right shape.
type ItemRow struct {
	ID             int
	Table          ItemTable
	VisitID        int
	VolunteerEmail string
	ItemName       string
	Qty            int
	Category       *string
	Unit           *string
	Barcode        *string
	Timestamp      string
	IngestID       *string
}

type DailyActivity struct {
	Day    string
	Visits int
	Items  int
}

// ManifestSource identifies which document format a manifest line came from.
type ManifestSource string

const (
	ManifestText ManifestSource = "text"
	ManifestHTML ManifestSource = "html_table"
	ManifestXLSX ManifestSource = "xlsx"
	ManifestPDF  ManifestSource = "pdf"
)

// ManifestItem is one line of a bulk donation manifest before normalization.
type ManifestItem struct {
	LineNo  int
	Source  ManifestSource
	RawLine string
	Name    string
	Qty     *float64
	Unit    *string
}
