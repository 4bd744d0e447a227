package rod

import (
	_ "embed"
)

// syncWriteWorker runs inside a dedicated worker; createSyncAccessHandle is
// not exposed to the window.
//
//go:embed worker.js
var syncWriteWorker string

const decodeBase64JS = `const decode = (b64) => {
	const bin = atob(b64);
	const bytes = new Uint8Array(bin.length);
	for (let i = 0; i < bin.length; i++) bytes[i] = bin.charCodeAt(i);
	return bytes;
};`

const (
	rootJS = `async () => await navigator.storage.getDirectory()`

	entriesJS = `async function () {
	const out = [];
	for await (const handle of this.values()) {
		out.push({ name: handle.name, kind: handle.kind });
	}
	return out;
}`

	directoryJS = `async function (name, create) {
	return await this.getDirectoryHandle(name, { create });
}`

	fileJS = `async function (name, create) {
	return await this.getFileHandle(name, { create });
}`

	removeJS = `async function (name, recursive) {
	await this.removeEntry(name, { recursive });
	return true;
}`

	sizeJS = `async function () {
	return (await this.getFile()).size;
}`

	readBase64JS = `async function () {
	const bytes = new Uint8Array(await (await this.getFile()).arrayBuffer());
	let bin = '';
	for (let i = 0; i < bytes.length; i += 0x8000) {
		bin += String.fromCharCode.apply(null, bytes.subarray(i, i + 0x8000));
	}
	return btoa(bin);
}`

	writeBase64JS = `async function (b64) {
	` + decodeBase64JS + `
	const bytes = decode(b64);
	const writable = await this.createWritable();
	try {
		await writable.write(bytes);
	} finally {
		await writable.close();
	}
	return bytes.length;
}`

	syncWriteJS = `async (source, path, b64) => {
	` + decodeBase64JS + `
	const bytes = decode(b64);
	const url = URL.createObjectURL(new Blob([source], { type: 'text/javascript' }));
	const worker = new Worker(url);
	try {
		return await new Promise((resolve, reject) => {
			worker.onmessage = (e) => {
				if (e.data === 'ok') {
					resolve(bytes.length);
					return;
				}
				const err = (e.data && e.data.error) || { name: 'Error', message: String(e.data) };
				reject(new DOMException(err.message, err.name));
			};
			worker.onerror = (e) => {
				e.preventDefault();
				reject(new DOMException(e.message || 'worker failed', 'Error'));
			};
			worker.postMessage({ path, data: bytes }, [bytes.buffer]);
		});
	} finally {
		worker.terminate();
		URL.revokeObjectURL(url);
	}
}`
)
