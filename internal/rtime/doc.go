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

// Package rtime implements the dense astronomical timestamp used
// throughout the session and store fabric: a 64-bit signed count of
// 100ns ticks since the Modified Julian Date epoch (1858-11-17T00:00Z),
// together with elapsed-time and interval arithmetic on top of it.
package rtime
