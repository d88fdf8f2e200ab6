package mbe

// Stage orders the computations a state has been realized through.
type Stage int

const (
	StageEmpty Stage = iota
	StageTopology
	StageModel
	StageInstance
	StageTime
	StagePosition
	StageVelocity
	StageDynamics
	StageAcceleration
)

var stageNames = [...]string{
	"Empty", "Topology", "Model", "Instance", "Time",
	"Position", "Velocity", "Dynamics", "Acceleration",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Invalid"
	}
	return stageNames[s]
}
