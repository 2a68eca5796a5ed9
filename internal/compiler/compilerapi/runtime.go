package compilerapi

// Runtime is the embedder-supplied capability the CORE queries for class-linker/runtime
// facts it cannot know on its own (spec section 6). Every method may fail; a failure is
// wrapped by the caller into a RuntimeLookupFailure and converted to PassCannotComplete for
// whichever pass issued the query — the CORE never blocks or retries on these calls (spec
// section 5: "any external runtime callback is expected to complete synchronously").
type Runtime interface {
	GetFieldType(f FieldRef) (DataType, error)
	GetFieldID(f FieldRef) (uint32, error)
	IsFieldVolatile(f FieldRef) (bool, error)
	GetClassIDForField(method MethodID, fieldIndex uint32) (ClassID, error)
	GetArrayComponentType(class ClassID) (DataType, error)
	IsInstantiable(class ClassID) (bool, error)
	CanScalarReplaceObject(class ClassID) (bool, error)
	GetMethodFullName(method MethodID, withSignature bool) (string, error)
}
