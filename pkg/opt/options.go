// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package opt

// --------------------------- Configuration ----------------------------

// Configure initializes and creates a new options structure.
func Configure[T any](opts ...func(*T)) T {
	options := new(T)

	// If options needs to be initialized, call the init() method
	var x any = options
	if v, ok := x.(interface {
		init()
	}); ok {
		v.init()
	}

	// Apply options provided
	for _, opt := range opts {
		opt(options)
	}
	return *options
}
