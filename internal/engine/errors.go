/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package engine

import "fmt"

// Class classifies a fault so the engine knows which stop flag to set and
// whether the fault is fatal to the process or local to one episode.
type Class int

// Fault classes.
const (
	// ClassConfig is a malformed configuration or unknown episode name.
	// Fatal at startup.
	ClassConfig Class = iota
	// ClassPeerLink is failure to establish or maintain the peer channel.
	// Fatal at startup; mid-session it ends the current episode with
	// PeerError set.
	ClassPeerLink
	// ClassWorld is a failure from the external world control channel.
	ClassWorld
	// ClassPhaseTimeout is a rendezvous or phase body that exceeded its
	// deadline.
	ClassPhaseTimeout
	// ClassAgentDeath is a death event observed from the world.
	ClassAgentDeath
	// ClassInternal is any other unexpected fault inside a phase body.
	ClassInternal
)

func (c Class) String() string {
	switch c {
	case ClassConfig:
		return "ConfigError"
	case ClassPeerLink:
		return "PeerLinkError"
	case ClassWorld:
		return "WorldError"
	case ClassPhaseTimeout:
		return "PhaseTimeoutError"
	case ClassAgentDeath:
		return "AgentDeath"
	case ClassInternal:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Fault is a classified error surfaced by a phase body or a component the
// engine drives. Wrapping a cause in a Fault lets the engine decide which
// stop flag to set without string-matching error messages.
type Fault struct {
	Class Class
	Cause error
}

func (f *Fault) Error() string {
	if f.Cause == nil {
		return f.Class.String()
	}
	return fmt.Sprintf("%s: %v", f.Class, f.Cause)
}

func (f *Fault) Unwrap() error { return f.Cause }

// NewFault wraps cause with a class.
func NewFault(class Class, cause error) *Fault {
	return &Fault{Class: class, Cause: cause}
}

// ConfigErrorf builds a ClassConfig fault.
func ConfigErrorf(format string, args ...any) *Fault {
	return NewFault(ClassConfig, fmt.Errorf(format, args...))
}

// PeerLinkErrorf builds a ClassPeerLink fault.
func PeerLinkErrorf(format string, args ...any) *Fault {
	return NewFault(ClassPeerLink, fmt.Errorf(format, args...))
}

// WorldErrorf builds a ClassWorld fault.
func WorldErrorf(format string, args ...any) *Fault {
	return NewFault(ClassWorld, fmt.Errorf(format, args...))
}

// PhaseTimeoutErrorf builds a ClassPhaseTimeout fault.
func PhaseTimeoutErrorf(format string, args ...any) *Fault {
	return NewFault(ClassPhaseTimeout, fmt.Errorf(format, args...))
}

// AgentDeathErrorf builds a ClassAgentDeath fault.
func AgentDeathErrorf(format string, args ...any) *Fault {
	return NewFault(ClassAgentDeath, fmt.Errorf(format, args...))
}

// InternalErrorf builds a ClassInternal fault, the catch-all for anything a
// phase body didn't anticipate.
func InternalErrorf(format string, args ...any) *Fault {
	return NewFault(ClassInternal, fmt.Errorf(format, args...))
}
