// Package rhi provides a render hardware interface for Go.
//
// # Overview
//
// rhi is a thin hardware-abstraction layer over rendering backends in
// the GoGPU ecosystem. It owns resource lifecycle (buffers, textures,
// samplers, shaders, pipelines, render targets, query heaps, fences),
// validates every descriptor before it reaches a backend, and records
// device work through command buffers submitted to a queue.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/rhi"
//	    _ "github.com/gogpu/rhi/driver/null" // or driver/wgpu
//	)
//
//	sys, err := rhi.New(rhi.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sys.Close()
//
//	vb, err := sys.CreateBuffer(&rhi.BufferDescriptor{
//	    Size:      1024,
//	    BindFlags: rhi.BindVertexBuffer,
//	}, vertexData)
//
//	cmd := sys.CreateDeferredCommandBuffer("frame", 0)
//	cmd.Begin()
//	cmd.BeginRenderPass(target, pass, []rhi.ClearColor{{R: 0, G: 0, B: 0, A: 1}})
//	cmd.BindPipeline(pipeline)
//	cmd.BindVertexBuffer(0, vb, 0)
//	cmd.Draw(3, 1, 0, 0)
//	cmd.EndRenderPass()
//	if err := cmd.End(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := sys.Queue().Submit(cmd, nil); err != nil {
//	    log.Fatal(err)
//	}
//
// # Command Buffers
//
// Deferred command buffers store typed command records and replay them
// into a fresh encoder when submitted to the queue; created with
// CmdBufferMultiSubmit, one recording can be submitted many times.
// Immediate command buffers forward each call to a live encoder and
// execute against the device when End is called, with no queue
// submission involved.
//
// # Backends
//
// Backends register themselves under a name when their package is
// imported. driver/wgpu runs on the GPU through the wgpu hal;
// driver/null is a deterministic in-memory software device used for
// tests and headless machines. rhi.New selects the best available
// backend unless Config.Adapter names one explicitly.
package rhi
