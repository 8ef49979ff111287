package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// Ошибки I/O
	IOReadFile   Code = 1001
	IOCacheRead  Code = 1002
	IOCacheWrite Code = 1003
	IOWatch      Code = 1004

	// Ошибки проекта / манифеста / DAG
	ProjInfo                    Code = 2000
	ProjDuplicateProject        Code = 2001
	ProjMissingProject          Code = 2002
	ProjSelfReference           Code = 2003
	ProjReferenceCycle          Code = 2004
	ProjInvalidManifest         Code = 2005
	ProjInvalidVersion          Code = 2006
	ProjDuplicateDocument       Code = 2007
	ProjMissingDocument         Code = 2008
	ProjDependencyFailed        Code = 2009
	ProjStaleGeneratedDocument  Code = 2010
	ProjDuplicateModuleRef      Code = 2011
	ProjMissingModule           Code = 2012
	ProjDuplicateProjectRefOpts Code = 2013

	// Компиляция (declaration language front end)
	CmpInfo                  Code = 3000
	CmpUnexpectedLine        Code = 3001
	CmpExpectIdentifier      Code = 3002
	CmpDuplicateType         Code = 3003
	CmpUnknownType           Code = 3004
	CmpUnresolvedImport      Code = 3005
	CmpDuplicateImport       Code = 3006
	CmpForwardUnknownModule  Code = 3007
	CmpDuplicateForward      Code = 3008
	CmpInvalidArity          Code = 3009
	CmpMissingModuleHeader   Code = 3010
	CmpDuplicateModuleHeader Code = 3011
	CmpInvalidName           Code = 3012

	// Генераторы
	GenInfo          Code = 4000
	GenFailed        Code = 4001
	GenDuplicateHint Code = 4002
	GenInvalidHint   Code = 4003
	GenCrashed       Code = 4004

	// Скелетные ссылки (metadata-only references)
	SklInfo            Code = 5000
	SklSourceHasErrors Code = 5001
	SklBuildFailed     Code = 5002
	SklCacheCorrupt    Code = 5003

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var ( // todo расширить описания и использовать как notes
	codeDescription = map[Code]string{
		UnknownCode:                 "Unknown error",
		IOReadFile:                  "I/O read file error",
		IOCacheRead:                 "Cache read error",
		IOCacheWrite:                "Cache write error",
		IOWatch:                     "File watch error",
		ProjInfo:                    "Project information",
		ProjDuplicateProject:        "Duplicate project definition",
		ProjMissingProject:          "Missing project",
		ProjSelfReference:           "Project references itself",
		ProjReferenceCycle:          "Project reference cycle detected",
		ProjInvalidManifest:         "Invalid project manifest",
		ProjInvalidVersion:          "Invalid module version",
		ProjDuplicateDocument:       "Duplicate document path",
		ProjMissingDocument:         "Missing document",
		ProjDependencyFailed:        "Dependency project has errors",
		ProjStaleGeneratedDocument:  "Frozen generated document no longer produced",
		ProjDuplicateModuleRef:      "Duplicate module reference",
		ProjMissingModule:           "Referenced module not found",
		ProjDuplicateProjectRefOpts: "Conflicting options on duplicate project reference",
		CmpInfo:                     "Compilation information",
		CmpUnexpectedLine:           "Unexpected declaration",
		CmpExpectIdentifier:         "Expect identifier",
		CmpDuplicateType:            "Duplicate type declaration",
		CmpUnknownType:              "Unknown type",
		CmpUnresolvedImport:         "Unresolved import",
		CmpDuplicateImport:          "Duplicate import",
		CmpForwardUnknownModule:     "Forward target module not imported",
		CmpDuplicateForward:         "Duplicate type forward",
		CmpInvalidArity:             "Invalid type arity",
		CmpMissingModuleHeader:      "Missing module header",
		CmpDuplicateModuleHeader:    "Duplicate module header",
		CmpInvalidName:              "Invalid declaration name",
		GenInfo:                     "Generator information",
		GenFailed:                   "Generator failed",
		GenDuplicateHint:            "Duplicate generated document hint",
		GenInvalidHint:              "Invalid generated document hint",
		GenCrashed:                  "Generator crashed",
		SklInfo:                     "Skeleton reference information",
		SklSourceHasErrors:          "Cannot emit skeleton from unit with errors",
		SklBuildFailed:              "Skeleton build failed",
		SklCacheCorrupt:             "Skeleton cache entry corrupt",
		ObsInfo:                     "Observability information",
		ObsTimings:                  "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CMP%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("SKL%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
