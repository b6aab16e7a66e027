package fixtures

// Score distribution ranges, out of 100.
const (
	avgPerformerMin     = 30.0
	avgPerformerRange   = 40.0
	highPerformerMin    = 70.0
	highPerformerRange  = 20.0
	lowPerformerMin     = 1.0
	lowPerformerRange   = 29.0
	elitePerformerMin   = 90.0
	elitePerformerRange = 10.0
	veryLowMin          = 0.0
	veryLowRange        = 10.0
	wideRangeMin        = 0.0
	wideRange           = 100.0
)

// Performer profiles.
const (
	caseAveragePerformer = iota
	caseHighPerformer
	caseLowPerformer
	caseElitePerformer
	caseVeryLowPerformer
	caseWideRange
	profileCount
)

const (
	defaultAttendance = 0.8
	noisyIDEvery      = 7 // every n-th contest row carries a case/padding variant
	handleLength      = 8
)

// Identifier header variants written across contest files. All resolve to
// the hall ticket column.
var idHeaders = []string{"Hall Ticket No", "Hall Ticket Number", "HallTicket No", "Roll Number", "hall ticket no."} //nolint:gochecknoglobals // fixed rotation
