package buttons

// managerScript is injected into the feed page. It owns the page side of the
// manual flow: scan for comment controls, attach an AI button beside each,
// and on click run limit-check → scrape → generate → fill through the
// bridge's postMessage protocol. Each reply listener is one-shot and keyed
// by request id, so duplicate delivery on the fallback path is harmless.
// Install passes the config object as the single argument.
const managerScript = `(cfg) => {
	if (window.__ctronButtons) return;
	window.__ctronButtons = true;

	const PROCESSED = 'data-ctron-processed';

	function sendMessage(action, payload, timeoutMs) {
		return new Promise((resolve, reject) => {
			const requestId = Date.now() + '-' + Math.random().toString(36).slice(2, 10);
			const replyType = 'COMMENTRON_BRIDGE_RESULT_' + requestId;
			let timer = null;
			const onMessage = (ev) => {
				const d = ev.data;
				if (!d || d.type !== replyType) return;
				window.removeEventListener('message', onMessage);
				clearTimeout(timer);
				if (d.error) reject(new Error(d.error));
				else resolve(d.data);
			};
			window.addEventListener('message', onMessage);
			timer = setTimeout(() => {
				window.removeEventListener('message', onMessage);
				reject(new Error('timed out waiting for ' + action));
			}, timeoutMs || 30000);
			window.postMessage({
				type: 'COMMENTRON_RUNTIME_SEND_MESSAGE',
				action: action,
				payload: payload || {},
				requestId: requestId,
			}, '*');
		});
	}

	function showNotice(text) {
		const note = document.createElement('div');
		note.textContent = text;
		note.style.cssText = 'position:fixed;top:80px;right:20px;z-index:9999;' +
			'background:#1d2226;color:#fff;padding:12px 16px;border-radius:8px;' +
			'font-size:14px;box-shadow:0 4px 12px rgba(0,0,0,.3);cursor:pointer;';
		note.addEventListener('click', () => note.remove());
		document.body.appendChild(note);
		setTimeout(() => note.remove(), 8000);
	}

	function findPostContainer(el) {
		for (const sel of cfg.postSelectors) {
			const container = el.closest(sel);
			if (container) return container;
		}
		return null;
	}

	function scrapePost(container) {
		let text = '', author = '';
		for (const sel of cfg.textSelectors) {
			const n = container.querySelector(sel);
			if (n) { text = n.innerText.trim(); break; }
		}
		for (const sel of cfg.authorSelectors) {
			const n = container.querySelector(sel);
			if (n) { author = n.innerText.trim(); break; }
		}
		return { postText: text, author: author };
	}

	function waitFor(fn, timeoutMs) {
		return new Promise((resolve, reject) => {
			const start = Date.now();
			const poll = () => {
				const result = fn();
				if (result) return resolve(result);
				if (Date.now() - start > timeoutMs) return reject(new Error('editor did not appear'));
				setTimeout(poll, 250);
			};
			poll();
		});
	}

	function fillEditor(editor, text) {
		editor.focus();
		editor.innerText = text;
		editor.dispatchEvent(new Event('input', { bubbles: true }));
		editor.dispatchEvent(new Event('change', { bubbles: true }));
	}

	async function handleClick(aiBtn, commentBtn) {
		const original = aiBtn.textContent;
		aiBtn.disabled = true;
		aiBtn.textContent = '⏳';

		// Unconditional restore: even a promise that never settles cannot
		// leave the button stuck.
		const safety = setTimeout(() => {
			aiBtn.disabled = false;
			aiBtn.textContent = original;
		}, cfg.safetyMs);

		try {
			const limit = await sendMessage('checkDailyLimit', {}, 30000);
			if (limit && limit.allowed === false) {
				showNotice('Daily AI comment limit reached (' + limit.limit + '). Try again tomorrow.');
				return;
			}

			const container = findPostContainer(commentBtn);
			if (!container) throw new Error('post container not found');
			const post = scrapePost(container);

			const settings = await sendMessage('getCommentSettings', {}, 30000);
			const gen = await sendMessage('generateAIComment', post, cfg.generateMs);
			if (!gen || !gen.text) throw new Error('empty generation result');

			commentBtn.click();
			const editor = await waitFor(() => {
				for (const sel of cfg.editorSelectors) {
					const n = container.querySelector(sel) || document.querySelector(sel);
					if (n) return n;
				}
				return null;
			}, cfg.editorWaitMs);

			fillEditor(editor, gen.text);

			if (settings && settings.autopost === 'autopost') {
				let submit = null;
				for (const sel of cfg.submitSelectors) {
					submit = container.querySelector(sel) || document.querySelector(sel);
					if (submit) break;
				}
				if (submit && !submit.disabled) {
					submit.click();
					await sendMessage('incrementDailyCount', {}, 30000);
				}
			}

			aiBtn.textContent = '✅';
			setTimeout(() => { aiBtn.textContent = original; }, 2000);
		} catch (err) {
			aiBtn.textContent = '❌ Error';
			setTimeout(() => { aiBtn.textContent = original; }, 3000);
		} finally {
			clearTimeout(safety);
			aiBtn.disabled = false;
		}
	}

	function attach(commentBtn) {
		if (commentBtn.getAttribute(PROCESSED)) return;
		commentBtn.setAttribute(PROCESSED, '1');

		const aiBtn = document.createElement('button');
		aiBtn.textContent = '🤖 AI';
		aiBtn.className = 'ctron-ai-button';
		aiBtn.style.cssText = 'margin-left:8px;padding:4px 10px;border-radius:16px;' +
			'border:1px solid #0a66c2;background:#fff;color:#0a66c2;cursor:pointer;font-size:13px;';
		aiBtn.addEventListener('click', (ev) => {
			ev.preventDefault();
			ev.stopPropagation();
			handleClick(aiBtn, commentBtn);
		});
		commentBtn.insertAdjacentElement('afterend', aiBtn);
	}

	function scan() {
		for (const sel of cfg.buttonSelectors) {
			document.querySelectorAll(sel).forEach(attach);
		}
	}

	let debounce = null;
	function scheduleScan() {
		clearTimeout(debounce);
		debounce = setTimeout(scan, 500);
	}

	scan();
	setInterval(scan, cfg.rescanMs);
	new MutationObserver(scheduleScan).observe(document.body, { childList: true, subtree: true });
	window.addEventListener('scroll', scheduleScan, { passive: true });
}`
