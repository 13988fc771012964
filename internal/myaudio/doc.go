// Package myaudio decodes audio files, encodes clips for upload and records
// fixed-length clips from a capture device.
//
// All samples handed to callers are mono float64 in [-1, 1]. Multi-channel
// sources are mixed down by averaging the channels of each frame.
package myaudio
