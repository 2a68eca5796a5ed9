// Package rtcap holds a hand-written test double for compilerapi.Runtime. A single Fake
// covers the whole capability surface, following the sarchlab/zeonica convention of one
// mock struct per collaborator rather than pulling in a mocking framework for an
// eight-method interface.
package rtcap

import (
	"fmt"

	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
)

// Fake implements compilerapi.Runtime entirely from maps the test populates; any query not
// present in the corresponding map returns a descriptive error, so a test that forgets to
// configure a response fails loudly instead of silently returning a zero value.
type Fake struct {
	FieldTypes       map[compilerapi.FieldRef]compilerapi.DataType
	FieldIDs         map[compilerapi.FieldRef]uint32
	VolatileFields   map[compilerapi.FieldRef]bool
	ClassesForField  map[fieldQuery]compilerapi.ClassID
	ArrayComponents  map[compilerapi.ClassID]compilerapi.DataType
	Instantiable     map[compilerapi.ClassID]bool
	ScalarReplaceable map[compilerapi.ClassID]bool
	MethodNames      map[compilerapi.MethodID]string
}

type fieldQuery struct {
	Method compilerapi.MethodID
	Index  uint32
}

// NewFake returns a Fake with every map initialized and ready for the test to populate.
func NewFake() *Fake {
	return &Fake{
		FieldTypes:        map[compilerapi.FieldRef]compilerapi.DataType{},
		FieldIDs:          map[compilerapi.FieldRef]uint32{},
		VolatileFields:    map[compilerapi.FieldRef]bool{},
		ClassesForField:   map[fieldQuery]compilerapi.ClassID{},
		ArrayComponents:   map[compilerapi.ClassID]compilerapi.DataType{},
		Instantiable:      map[compilerapi.ClassID]bool{},
		ScalarReplaceable: map[compilerapi.ClassID]bool{},
		MethodNames:       map[compilerapi.MethodID]string{},
	}
}

func (f *Fake) GetFieldType(ref compilerapi.FieldRef) (compilerapi.DataType, error) {
	if t, ok := f.FieldTypes[ref]; ok {
		return t, nil
	}
	return compilerapi.TypeInvalid, fmt.Errorf("rtcap: no field type configured for %+v", ref)
}

func (f *Fake) GetFieldID(ref compilerapi.FieldRef) (uint32, error) {
	if id, ok := f.FieldIDs[ref]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("rtcap: no field id configured for %+v", ref)
}

func (f *Fake) IsFieldVolatile(ref compilerapi.FieldRef) (bool, error) {
	return f.VolatileFields[ref], nil
}

func (f *Fake) GetClassIDForField(method compilerapi.MethodID, fieldIndex uint32) (compilerapi.ClassID, error) {
	if c, ok := f.ClassesForField[fieldQuery{method, fieldIndex}]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("rtcap: no class configured for method %d field index %d", method, fieldIndex)
}

func (f *Fake) GetArrayComponentType(class compilerapi.ClassID) (compilerapi.DataType, error) {
	if t, ok := f.ArrayComponents[class]; ok {
		return t, nil
	}
	return compilerapi.TypeInvalid, fmt.Errorf("rtcap: no array component type configured for class %d", class)
}

func (f *Fake) IsInstantiable(class compilerapi.ClassID) (bool, error) {
	return f.Instantiable[class], nil
}

func (f *Fake) CanScalarReplaceObject(class compilerapi.ClassID) (bool, error) {
	return f.ScalarReplaceable[class], nil
}

func (f *Fake) GetMethodFullName(method compilerapi.MethodID, withSignature bool) (string, error) {
	name, ok := f.MethodNames[method]
	if !ok {
		return "", fmt.Errorf("rtcap: no method name configured for %d", method)
	}
	if withSignature {
		return name + "(...)", nil
	}
	return name, nil
}

var _ compilerapi.Runtime = (*Fake)(nil)
