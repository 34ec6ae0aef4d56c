package dialect

import "errors"

// ErrDetectFailed indicates the engine family or version could not be determined.
// It is fatal for any rule that needs dialect information.
var ErrDetectFailed = errors.New("dialect detection failed")
