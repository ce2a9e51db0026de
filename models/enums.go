package models

type MachineType string

const (
	MachineTypePrinting  MachineType = "printing"
	MachineTypeWashing   MachineType = "washing"
	MachineTypeFixing    MachineType = "fixing"
	MachineTypeStitching MachineType = "stitching"
	MachineTypeFinishing MachineType = "finishing"
)

type MachineCurrentStatus string

const (
	MachineStatusIdle        MachineCurrentStatus = "idle"
	MachineStatusRunning     MachineCurrentStatus = "running"
	MachineStatusMaintenance MachineCurrentStatus = "maintenance"
	MachineStatusBreakdown   MachineCurrentStatus = "breakdown"
	MachineStatusSetup       MachineCurrentStatus = "setup"
	MachineStatusCleaning    MachineCurrentStatus = "cleaning"
)

type Shift string

const (
	ShiftDay     Shift = "day"
	ShiftNight   Shift = "night"
	ShiftGeneral Shift = "general"
)

type QualityGrade string

const (
	QualityGradeA QualityGrade = "A"
	QualityGradeB QualityGrade = "B"
	QualityGradeC QualityGrade = "C"
	QualityGradeD QualityGrade = "D"
	QualityGradeF QualityGrade = "F"
)

type AlertType string

const (
	AlertTypeLowEfficiency    AlertType = "low_efficiency"
	AlertTypeHighRejection    AlertType = "high_rejection"
	AlertTypeOverdueOrder     AlertType = "overdue_order"
	AlertTypeMachineBreakdown AlertType = "machine_breakdown"
	AlertTypeQualityIssue     AlertType = "quality_issue"
)

type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertState is derived from the acknowledge/resolve flags, never stored.
type AlertState string

const (
	AlertStateOpen         AlertState = "open"
	AlertStateAcknowledged AlertState = "acknowledged"
	AlertStateResolved     AlertState = "resolved"
)

type AlertEventAction string

const (
	AlertEventActionCreated      AlertEventAction = "created"
	AlertEventActionAcknowledged AlertEventAction = "acknowledged"
	AlertEventActionResolved     AlertEventAction = "resolved"
)
