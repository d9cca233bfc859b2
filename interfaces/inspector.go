package interfaces

import "github.com/customeros/lexsync/dto"

type FileInspector interface {
	Validate(path string) dto.InspectionResult
}
