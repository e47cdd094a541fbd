package ingestion

import "github.com/sablehq/talentdeck/core"

// IngestMonitor provides hooks to observe the asynchronous phase of an
// ingestion job. Implement this interface to track intermediate steps,
// primarily in tests and diagnostic tooling. Hooks may be called from
// worker goroutines.
type IngestMonitor interface {
	Start(job *core.IngestionJob)
	OracleSkipped(jobId core.ID)
	AfterExtraction(jobId core.ID)
	DimensionEnsured(key string, created bool)
	TagResolved(name string, id core.ID)
	Done(jobId core.ID)
	Failed(jobId core.ID, err error)
}

// noopMonitor is a no-op implementation of IngestMonitor
type noopMonitor struct{}

var _ IngestMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ *core.IngestionJob)        {}
func (n *noopMonitor) OracleSkipped(_ core.ID)           {}
func (n *noopMonitor) AfterExtraction(_ core.ID)         {}
func (n *noopMonitor) DimensionEnsured(_ string, _ bool) {}
func (n *noopMonitor) TagResolved(_ string, _ core.ID)   {}
func (n *noopMonitor) Done(_ core.ID)                    {}
func (n *noopMonitor) Failed(_ core.ID, _ error)         {}
